// Package inject decides when the voice-control script enters or
// leaves a page. Several browser events can demand the same injection
// within milliseconds of each other; the orchestrator collapses them
// so each page gets the script exactly once.
package inject

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voicenav/internal/logging"
	"voicenav/internal/metrics"
	"voicenav/internal/session"
)

// Injector applies or removes the control script on a page. The
// browser layer implements this.
type Injector interface {
	Inject(ctx context.Context, pageHandle string) error
	Remove(ctx context.Context, pageHandle string) error
}

// ActivationStore is the slice of the session store the orchestrator
// needs.
type ActivationStore interface {
	IsActive(ctx context.Context, scope string) (bool, error)
	SetActive(ctx context.Context, scope string, active bool) error
}

// Orchestrator routes activation decisions to the injector, with a
// per-page cooldown so bursts of navigation events inject once.
type Orchestrator struct {
	store     ActivationStore
	injector  Injector
	cooldown  time.Duration
	recordTTL time.Duration
	now       func() time.Time

	mu     sync.Mutex
	recent map[string]time.Time
	lastGC time.Time
}

// New creates an orchestrator. recordTTL bounds how long a cooldown
// record survives after its page stops producing events.
func New(store ActivationStore, injector Injector, cooldown, recordTTL time.Duration) *Orchestrator {
	return &Orchestrator{
		store:     store,
		injector:  injector,
		cooldown:  cooldown,
		recordTTL: recordTTL,
		now:       time.Now,
		recent:    make(map[string]time.Time),
	}
}

// HandleNavigation reacts to a completed top-level navigation: inject
// when the destination scope is active, otherwise do nothing. Sub-frame
// navigations never trigger injection.
func (o *Orchestrator) HandleNavigation(ctx context.Context, pageHandle, pageURL string, topLevel bool) error {
	if !topLevel {
		logging.InjectDebug("ignoring sub-frame navigation on %s", pageHandle)
		return nil
	}

	scope, err := session.ScopeForURL(pageURL)
	if err != nil {
		logging.InjectDebug("unscopable url %q: %v", pageURL, err)
		metrics.Injections.WithLabelValues("restricted").Inc()
		return nil
	}

	active, err := o.store.IsActive(ctx, scope)
	if err != nil {
		return fmt.Errorf("check activation for %s: %w", scope, err)
	}
	if !active {
		return nil
	}
	return o.inject(ctx, pageHandle, scope)
}

// ToggleOn activates the page's scope and injects immediately.
func (o *Orchestrator) ToggleOn(ctx context.Context, pageHandle, pageURL string) error {
	scope, err := session.ScopeForURL(pageURL)
	if err != nil {
		return fmt.Errorf("scope for %q: %w", pageURL, err)
	}
	if err := o.store.SetActive(ctx, scope, true); err != nil {
		return err
	}
	return o.inject(ctx, pageHandle, scope)
}

// ToggleOff deactivates the page's scope and removes the script.
func (o *Orchestrator) ToggleOff(ctx context.Context, pageHandle, pageURL string) error {
	scope, err := session.ScopeForURL(pageURL)
	if err != nil {
		return fmt.Errorf("scope for %q: %w", pageURL, err)
	}
	if err := o.store.SetActive(ctx, scope, false); err != nil {
		return err
	}

	o.mu.Lock()
	delete(o.recent, pageHandle)
	o.mu.Unlock()

	if err := o.injector.Remove(ctx, pageHandle); err != nil {
		return fmt.Errorf("remove from %s: %w", pageHandle, err)
	}
	logging.Inject("removed from %s, scope %q deactivated", pageHandle, scope)
	return nil
}

// KeyboardToggle flips the activation state of the focused page's
// scope. Returns the new state.
func (o *Orchestrator) KeyboardToggle(ctx context.Context, pageHandle, pageURL string) (bool, error) {
	scope, err := session.ScopeForURL(pageURL)
	if err != nil {
		return false, fmt.Errorf("scope for %q: %w", pageURL, err)
	}
	active, err := o.store.IsActive(ctx, scope)
	if err != nil {
		return false, err
	}
	if active {
		return false, o.ToggleOff(ctx, pageHandle, pageURL)
	}
	return true, o.ToggleOn(ctx, pageHandle, pageURL)
}

// inject applies the script once per cooldown window. The claim is
// taken before the injector call, so a second event arriving while the
// first injection is still in flight is deduplicated, not queued.
func (o *Orchestrator) inject(ctx context.Context, pageHandle, scope string) error {
	if !o.claim(pageHandle) {
		logging.InjectDebug("deduplicated injection for %s", pageHandle)
		metrics.Injections.WithLabelValues("deduplicated").Inc()
		return nil
	}

	if err := o.injector.Inject(ctx, pageHandle); err != nil {
		// The claim stands: a failed page waits out the cooldown before
		// any re-attempt, so redundant events cannot retry-storm it.
		metrics.Injections.WithLabelValues("failed").Inc()
		return fmt.Errorf("inject into %s: %w", pageHandle, err)
	}

	logging.Inject("injected into %s for scope %q", pageHandle, scope)
	metrics.Injections.WithLabelValues("injected").Inc()
	return nil
}

// claim records an injection attempt for the page. Returns false when
// the page is still inside its cooldown window.
func (o *Orchestrator) claim(pageHandle string) bool {
	now := o.now()

	o.mu.Lock()
	defer o.mu.Unlock()

	o.gcLocked(now)

	if last, ok := o.recent[pageHandle]; ok && now.Sub(last) < o.cooldown {
		return false
	}
	o.recent[pageHandle] = now
	return true
}

// gcLocked drops records older than the TTL. Runs at most once per TTL
// so busy event streams don't pay for a scan every claim.
func (o *Orchestrator) gcLocked(now time.Time) {
	if now.Sub(o.lastGC) < o.recordTTL {
		return
	}
	o.lastGC = now
	for handle, at := range o.recent {
		if now.Sub(at) >= o.recordTTL {
			delete(o.recent, handle)
		}
	}
}
