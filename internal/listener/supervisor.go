// Package listener supervises the speech recognition session.
// Recognition engines end their sessions constantly (silence timeouts,
// transient audio errors), so the supervisor restarts them until the
// user says stop or the failure is one a restart cannot fix.
package listener

import (
	"context"
	"errors"
	"sync"
	"time"

	"voicenav/internal/config"
	"voicenav/internal/logging"
	"voicenav/internal/metrics"
)

// ErrPermissionDenied means microphone access was refused. Restarting
// cannot help; the supervisor fails out immediately.
var ErrPermissionDenied = errors.New("microphone permission denied")

// Recognizer runs one recognition session, calling emit for every final
// utterance, until the session ends or ctx is cancelled. A nil return
// is a normal session end (restartable); errors are transient unless
// they wrap ErrPermissionDenied.
type Recognizer interface {
	Run(ctx context.Context, emit func(utterance string)) error
}

// State is the supervisor's lifecycle phase.
type State int

const (
	// StateIdle means Start has not been called.
	StateIdle State = iota
	// StateRunning means a session is live or being restarted.
	StateRunning
	// StateStopped means the user stopped listening.
	StateStopped
	// StateFailed means a fatal error ended supervision.
	StateFailed
)

// Supervisor keeps a Recognizer running.
type Supervisor struct {
	rec     Recognizer
	cfg     config.ListenerConfig
	handler func(utterance string)

	mu      sync.Mutex
	state   State
	lastErr error
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSupervisor creates a supervisor delivering utterances to handler.
func NewSupervisor(rec Recognizer, cfg config.ListenerConfig, handler func(string)) *Supervisor {
	return &Supervisor{rec: rec, cfg: cfg, handler: handler}
}

// Start begins supervision. Non-blocking; no-op when already running.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning
	s.lastErr = nil

	go s.run(runCtx)
}

// Stop ends supervision on the user's behalf: the live session is
// cancelled and no restart follows. Blocks until the loop exits.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// State reports the current lifecycle phase.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the fatal error after StateFailed, nil otherwise.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	consecutive := 0
	for {
		err := s.rec.Run(ctx, s.emit)

		if ctx.Err() != nil {
			// User stop or parent shutdown: no restart.
			s.setState(StateStopped, nil)
			logging.Listener("stopped")
			return
		}

		if errors.Is(err, ErrPermissionDenied) {
			s.setState(StateFailed, err)
			logging.Listener("fatal: %v", err)
			return
		}

		if err != nil {
			consecutive++
			logging.Listener("session error (%d in a row): %v", consecutive, err)
			if s.cfg.MaxConsecutiveErrors > 0 && consecutive >= s.cfg.MaxConsecutiveErrors {
				s.setState(StateFailed, err)
				logging.Listener("giving up after %d consecutive errors", consecutive)
				return
			}
		} else {
			consecutive = 0
			logging.Listener("session ended, restarting")
		}

		metrics.ListenerRestarts.Inc()
		select {
		case <-time.After(s.cfg.RestartDelay()):
		case <-ctx.Done():
			s.setState(StateStopped, nil)
			return
		}
	}
}

func (s *Supervisor) emit(utterance string) {
	if s.handler != nil {
		s.handler(utterance)
	}
}

func (s *Supervisor) setState(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.lastErr = err
	s.mu.Unlock()
}
