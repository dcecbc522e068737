package followup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenav/internal/intent"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(30 * time.Second).withClock(clock.now)
	return tr, clock
}

func bareNumber(n int, raw string) intent.Command {
	return intent.Command{Number: &n, RawText: raw}
}

func showLinks() intent.Command {
	return intent.Command{Action: intent.ActionShow, Target: "link", Success: true, Confidence: 0.6}
}

func TestResolveSelectsCandidate(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Await(showLinks(), 5)
	require.Equal(t, Awaiting, tr.State())

	res := tr.Resolve(bareNumber(3, "three"))
	require.True(t, res.Resolved)
	assert.Equal(t, intent.ActionClick, res.Command.Action)
	assert.Equal(t, "link", res.Command.Target)
	assert.Equal(t, 3, res.Command.Num())
	assert.True(t, res.Command.Success)

	// Context is consumed.
	assert.Equal(t, Idle, tr.State())
	assert.Equal(t, "idle", tr.Resolve(bareNumber(3, "three")).Reason)
}

func TestResolveIdleIgnoresNumbers(t *testing.T) {
	tr, _ := newTestTracker()
	res := tr.Resolve(bareNumber(2, "two"))
	assert.False(t, res.Resolved)
	assert.Equal(t, "idle", res.Reason)
}

func TestResolveOutOfRangeKeepsContext(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Await(showLinks(), 3)

	res := tr.Resolve(bareNumber(7, "seven"))
	assert.False(t, res.Resolved)
	assert.Equal(t, "out_of_range", res.Reason)

	// The window was not extended by the failed attempt: 25s into the
	// original 30s window the context is still alive, 31s in it is gone.
	clock.advance(25 * time.Second)
	assert.Equal(t, Awaiting, tr.State())

	res = tr.Resolve(bareNumber(2, "two"))
	require.True(t, res.Resolved)
	assert.Equal(t, 2, res.Command.Num())
}

func TestResolveExpiry(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Await(showLinks(), 3)

	clock.advance(31 * time.Second)
	res := tr.Resolve(bareNumber(1, "one"))
	assert.False(t, res.Resolved)
	assert.Equal(t, "expired", res.Reason)
	assert.Equal(t, Idle, tr.State())
}

func TestResolveNewCommandDiscardsContext(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Await(showLinks(), 3)

	cmd := intent.Command{Action: intent.ActionScroll, Direction: intent.DirDown, Success: true}
	res := tr.Resolve(cmd)
	assert.False(t, res.Resolved)
	assert.Equal(t, "superseded", res.Reason)

	// The user moved on; a later number has nothing to select from.
	assert.Equal(t, Idle, tr.State())
	assert.Equal(t, "idle", tr.Resolve(bareNumber(2, "two")).Reason)
}

func TestResolveConversationalKeepsContext(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Await(showLinks(), 3)

	// "yes" answers a confirmation prompt, not the enumeration.
	res := tr.Resolve(intent.Command{Action: intent.ActionConfirm, Confirmation: "yes", Success: true})
	assert.False(t, res.Resolved)
	assert.Equal(t, "not_followup", res.Reason)
	assert.Equal(t, Awaiting, tr.State())

	res = tr.Resolve(bareNumber(2, "two"))
	require.True(t, res.Resolved)
	assert.Equal(t, 2, res.Command.Num())
}

func TestResolveGibberishKeepsContext(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Await(showLinks(), 3)

	// No verb, no number: noise does not burn the context.
	res := tr.Resolve(intent.Command{RawText: "uh hmm"})
	assert.Equal(t, "not_followup", res.Reason)
	assert.Equal(t, Awaiting, tr.State())
}

func TestResolveKeepsClickAction(t *testing.T) {
	tr, _ := newTestTracker()
	pending := intent.Command{Action: intent.ActionClick, Target: "button", Success: true}
	tr.Await(pending, 4)

	res := tr.Resolve(bareNumber(2, "two"))
	require.True(t, res.Resolved)
	assert.Equal(t, intent.ActionClick, res.Command.Action)
}

func TestAwaitZeroCandidatesStaysIdle(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Await(showLinks(), 0)
	assert.Equal(t, Idle, tr.State())
}

func TestClearDropsContext(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Await(showLinks(), 3)
	tr.Clear()
	assert.Equal(t, Idle, tr.State())
}

func TestResolveReferenceReplay(t *testing.T) {
	tr, _ := newTestTracker()
	last := intent.Command{Action: intent.ActionScroll, Direction: intent.DirDown, Success: true}
	tr.RecordOutcome(last)

	out := tr.ResolveReference(intent.Command{RawText: "again"})
	assert.Equal(t, intent.ActionScroll, out.Action)
	assert.Equal(t, intent.DirDown, out.Direction)
	assert.Equal(t, "again", out.RawText)
}

func TestResolveReferencePronoun(t *testing.T) {
	tr, _ := newTestTracker()
	tr.RecordOutcome(intent.Command{Action: intent.ActionShow, Target: "button", Success: true})

	out := tr.ResolveReference(intent.Command{Action: intent.ActionClick, RawText: "click it"})
	assert.Equal(t, intent.ActionClick, out.Action)
	assert.Equal(t, "button", out.Target)
}

func TestResolveReferenceNoMemory(t *testing.T) {
	tr, _ := newTestTracker()

	out := tr.ResolveReference(intent.Command{RawText: "again"})
	assert.Empty(t, out.Action)

	in := intent.Command{Action: intent.ActionClick, RawText: "click it"}
	assert.Equal(t, in, tr.ResolveReference(in))
}
