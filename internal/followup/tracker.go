// Package followup holds the short-lived conversational state between
// an enumerated result ("show me the links" -> numbered overlay) and
// the utterance that picks from it ("three").
package followup

import (
	"strings"
	"sync"
	"time"

	"voicenav/internal/intent"
	"voicenav/internal/logging"
	"voicenav/internal/metrics"
)

// State is the tracker's current mode.
type State int

const (
	// Idle means no enumeration is pending; bare numbers are noise.
	Idle State = iota
	// Awaiting means an enumerated result is on screen and a number
	// utterance selects from it.
	Awaiting
)

// Resolution is the outcome of offering an utterance to the tracker.
type Resolution struct {
	// Resolved is true when the utterance completed the pending command.
	Resolved bool
	// Command is the completed command when Resolved is true.
	Command intent.Command
	// Reason explains a non-resolution: "idle", "not_followup",
	// "superseded", "out_of_range", "expired".
	Reason string
}

// Tracker is the follow-up state machine. Safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	now        func() time.Time
	expiry     time.Duration
	state      State
	pending    intent.Command
	candidates int
	expiresAt  time.Time

	// Conversational memory for reference words.
	lastCommand intent.Command
	lastTarget  string
}

// NewTracker creates a tracker whose pending context lives for expiry.
func NewTracker(expiry time.Duration) *Tracker {
	return &Tracker{now: time.Now, expiry: expiry}
}

// withClock substitutes the time source. Test hook.
func (t *Tracker) withClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// State reports the current mode, expiring a stale context first.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireLocked()
	return t.state
}

// Await records that cmd produced an enumeration of candidateCount
// items and arms the follow-up window. A zero count means nothing to
// pick from, so the tracker stays (or becomes) idle.
func (t *Tracker) Await(cmd intent.Command, candidateCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if candidateCount <= 0 {
		t.resetLocked()
		return
	}
	t.state = Awaiting
	t.pending = cmd
	t.candidates = candidateCount
	t.expiresAt = t.now().Add(t.expiry)
	logging.FollowUp("awaiting selection: action=%s target=%s candidates=%d", cmd.Action, cmd.Target, candidateCount)
}

// Resolve offers an utterance to the pending context. Only a bare
// number resolves it. A new command with its own verb discards the
// context: the user moved on, and a later bare number must not land on
// a stale enumeration. An out-of-range number keeps the context alive
// without extending its lifetime, so the user can correct themselves.
func (t *Tracker) Resolve(cmd intent.Command) Resolution {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Idle {
		return Resolution{Reason: "idle"}
	}
	if t.expireLocked() {
		metrics.FollowUpResolutions.WithLabelValues("expired").Inc()
		return Resolution{Reason: "expired"}
	}
	if !cmd.IsBareNumber() {
		if cmd.HasAction() && !conversational(cmd.Action) {
			t.resetLocked()
			logging.FollowUp("new %s command discards pending context", cmd.Action)
			metrics.FollowUpResolutions.WithLabelValues("superseded").Inc()
			return Resolution{Reason: "superseded"}
		}
		return Resolution{Reason: "not_followup"}
	}

	n := cmd.Num()
	if n < 1 || n > t.candidates {
		logging.FollowUp("selection %d out of range 1..%d, keeping context", n, t.candidates)
		metrics.FollowUpResolutions.WithLabelValues("out_of_range").Inc()
		return Resolution{Reason: "out_of_range"}
	}

	completed := t.pending
	completed.Number = &n
	completed.RawText = cmd.RawText
	completed.Success = true
	if completed.Action == intent.ActionShow {
		// Picking from an enumeration means activating the pick.
		completed.Action = intent.ActionClick
	}

	t.resetLocked()
	logging.FollowUp("selection %d resolved to action=%s target=%s", n, completed.Action, completed.Target)
	metrics.FollowUpResolutions.WithLabelValues("resolved").Inc()
	return Resolution{Resolved: true, Command: completed}
}

// conversational verbs answer the pipeline's own prompts; they never
// supersede an enumeration.
func conversational(action string) bool {
	switch action {
	case intent.ActionConfirm, intent.ActionDeny, intent.ActionCancel:
		return true
	}
	return false
}

// RecordOutcome remembers a successfully dispatched command so that
// reference words can reuse it.
func (t *Tracker) RecordOutcome(cmd intent.Command) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastCommand = cmd
	if cmd.HasTarget() {
		t.lastTarget = cmd.Target
	}
}

// referenceWords trigger reuse of the previous command wholesale.
var referenceWords = map[string]bool{
	"again": true, "repeat": true, "same": true, "same thing": true,
	"once more": true, "do it again": true,
}

// ResolveReference rewrites reference utterances against conversational
// memory: "again" replays the last command, and a verb with no target
// ("click it") inherits the last target. Returns the input unchanged
// when no memory applies.
func (t *Tracker) ResolveReference(cmd intent.Command) intent.Command {
	t.mu.Lock()
	defer t.mu.Unlock()

	norm := intent.Normalize(cmd.RawText)
	if referenceWords[norm] {
		if !t.lastCommand.HasAction() {
			return cmd
		}
		replay := t.lastCommand
		replay.RawText = cmd.RawText
		logging.FollowUp("reference %q replays action=%s target=%s", norm, replay.Action, replay.Target)
		return replay
	}

	if cmd.HasAction() && !cmd.HasTarget() && t.lastTarget != "" && mentionsPronoun(norm) {
		cmd.Target = t.lastTarget
		logging.FollowUp("pronoun bound to previous target %q", t.lastTarget)
	}
	return cmd
}

func mentionsPronoun(norm string) bool {
	for _, tok := range strings.Fields(norm) {
		switch tok {
		case "it", "that", "them", "those":
			return true
		}
	}
	return false
}

// Clear drops any pending context. Used on navigation and cancel.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

// expireLocked retires a stale context. Reports whether it did.
func (t *Tracker) expireLocked() bool {
	if t.state == Awaiting && t.now().After(t.expiresAt) {
		t.resetLocked()
		logging.FollowUp("pending context expired")
		return true
	}
	return false
}

func (t *Tracker) resetLocked() {
	t.state = Idle
	t.pending = intent.Command{}
	t.candidates = 0
	t.expiresAt = time.Time{}
}
