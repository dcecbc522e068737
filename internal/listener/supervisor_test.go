package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"voicenav/internal/config"
)

// scriptedRecognizer plays back a sequence of session outcomes. A nil
// entry is a clean session end; afterwards it blocks until cancelled.
type scriptedRecognizer struct {
	mu     sync.Mutex
	script []error
	runs   int
}

func (r *scriptedRecognizer) Run(ctx context.Context, emit func(string)) error {
	r.mu.Lock()
	run := r.runs
	r.runs++
	r.mu.Unlock()

	if run < len(r.script) {
		return r.script[run]
	}
	emit("click the button")
	<-ctx.Done()
	return ctx.Err()
}

func (r *scriptedRecognizer) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func fastCfg() config.ListenerConfig {
	return config.ListenerConfig{RestartDelayMs: 1}
}

func TestSupervisorRestartsAfterTransientErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &scriptedRecognizer{script: []error{
		errors.New("audio device busy"),
		nil, // clean session end restarts too
		errors.New("network hiccup"),
	}}

	var mu sync.Mutex
	var heard []string
	s := NewSupervisor(rec, fastCfg(), func(u string) {
		mu.Lock()
		heard = append(heard, u)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(heard) > 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, StateRunning, s.State())
	assert.GreaterOrEqual(t, rec.runCount(), 4)

	s.Stop()
	assert.Equal(t, StateStopped, s.State())
}

func TestSupervisorPermissionDeniedIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &scriptedRecognizer{script: []error{ErrPermissionDenied}}
	s := NewSupervisor(rec, fastCfg(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return s.State() == StateFailed
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Err(), ErrPermissionDenied)
	// Exactly one session: no restart was attempted.
	assert.Equal(t, 1, rec.runCount())
}

func TestSupervisorWrappedPermissionDenied(t *testing.T) {
	defer goleak.VerifyNone(t)

	wrapped := errors.Join(errors.New("session start"), ErrPermissionDenied)
	rec := &scriptedRecognizer{script: []error{wrapped}}
	s := NewSupervisor(rec, fastCfg(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return s.State() == StateFailed
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.runCount())
}

func TestSupervisorStopSuppressesRestart(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &scriptedRecognizer{}
	s := NewSupervisor(rec, fastCfg(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return rec.runCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.Equal(t, StateStopped, s.State())

	// No restart sneaks in after a user stop.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.runCount())
}

func TestSupervisorGivesUpAfterMaxErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &scriptedRecognizer{script: []error{
		errors.New("err 1"),
		errors.New("err 2"),
		errors.New("err 3"),
		errors.New("err 4"),
	}}
	cfg := config.ListenerConfig{RestartDelayMs: 1, MaxConsecutiveErrors: 3}
	s := NewSupervisor(rec, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return s.State() == StateFailed
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, rec.runCount())
}

func TestSupervisorParentCancelStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &scriptedRecognizer{}
	s := NewSupervisor(rec, fastCfg(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return rec.runCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		return s.State() == StateStopped
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSupervisorStartIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &scriptedRecognizer{}
	s := NewSupervisor(rec, fastCfg(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return rec.runCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.runCount())

	s.Stop()
}