package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenav/internal/dispatch"
	"voicenav/internal/followup"
	"voicenav/internal/intent"
)

// pageExecutor fakes the browser: enumerations report a fixed count,
// everything else succeeds.
type pageExecutor struct {
	mu         sync.Mutex
	actions    []dispatch.Action
	candidates int
}

func (f *pageExecutor) Execute(ctx context.Context, action dispatch.Action) (dispatch.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	if _, ok := action.(dispatch.ShowAll); ok {
		return dispatch.Outcome{OK: true, Candidates: f.candidates}, nil
	}
	return dispatch.Outcome{OK: true}, nil
}

func (f *pageExecutor) last() dispatch.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.actions) == 0 {
		return nil
	}
	return f.actions[len(f.actions)-1]
}

func (f *pageExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actions)
}

// echoEnricher agrees with whatever the primary path found.
type echoEnricher struct{}

func (echoEnricher) Available(ctx context.Context) bool { return true }

func (echoEnricher) Enrich(ctx context.Context, text string) (intent.Enrichment, error) {
	cmd := intent.Command{}
	for _, tok := range strings.Fields(text) {
		switch tok {
		case "show", "click", "scroll":
			cmd.Action = tok
		}
	}
	return intent.Enrichment{Command: cmd, VerbCandidates: 1}, nil
}

func newTestPipeline(exec *pageExecutor) *Pipeline {
	parser := intent.NewParser(nil, echoEnricher{})
	tracker := followup.NewTracker(30 * time.Second)
	dispatcher := dispatch.NewDispatcher(0.3, exec)
	return New(parser, tracker, dispatcher)
}

func TestEnumerateThenPick(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{candidates: 4}
	p := newTestPipeline(exec)

	resp := p.HandleUtterance(ctx, "could you please show me all the buttons on this page")
	require.Equal(t, dispatch.StatusExecuted, resp.Result.Status)
	assert.Equal(t, dispatch.ShowAll{Target: "button"}, resp.Result.Action)
	assert.InDelta(t, 0.8, resp.Command.Confidence, 1e-9)
	assert.Contains(t, resp.Feedback, "4 buttons")

	resp = p.HandleUtterance(ctx, "three")
	require.Equal(t, dispatch.StatusExecuted, resp.Result.Status)
	click, ok := exec.last().(dispatch.ClickNth)
	require.True(t, ok)
	assert.Equal(t, 3, click.Index)
	assert.Equal(t, "button", click.Target)
}

func TestOutOfRangeKeepsContext(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{candidates: 3}
	p := newTestPipeline(exec)

	p.HandleUtterance(ctx, "show me the links")

	before := exec.count()
	resp := p.HandleUtterance(ctx, "seven")
	assert.Contains(t, resp.Feedback, "isn't on the list")
	assert.Nil(t, resp.Result.Action)
	assert.Equal(t, before, exec.count())

	resp = p.HandleUtterance(ctx, "two")
	require.Equal(t, dispatch.StatusExecuted, resp.Result.Status)
	click, ok := exec.last().(dispatch.ClickNth)
	require.True(t, ok)
	assert.Equal(t, 2, click.Index)
}

func TestInterveningCommandDiscardsEnumeration(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{candidates: 8}
	p := newTestPipeline(exec)

	p.HandleUtterance(ctx, "show me the buttons")
	resp := p.HandleUtterance(ctx, "scroll down")
	require.Equal(t, dispatch.StatusExecuted, resp.Result.Status)

	// The enumeration died with the scroll; the number is noise now.
	resp = p.HandleUtterance(ctx, "three")
	assert.Equal(t, dispatch.StatusUnrecognized, resp.Result.Status)
	assert.IsType(t, dispatch.Scroll{}, exec.last())
}

func TestBareNumberWithoutContextIsUnrecognized(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{}
	p := newTestPipeline(exec)

	resp := p.HandleUtterance(ctx, "three")
	assert.Equal(t, dispatch.StatusUnrecognized, resp.Result.Status)
	assert.Zero(t, exec.count())
}

func TestGibberishIsUnrecognized(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{}
	p := newTestPipeline(exec)

	resp := p.HandleUtterance(ctx, "flurble wumpus grembly")
	assert.Equal(t, dispatch.StatusUnrecognized, resp.Result.Status)
	assert.NotEmpty(t, resp.Feedback)
	assert.Zero(t, exec.count())
}

func TestHesitantClickAsksForConfirmation(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{}
	p := newTestPipeline(exec)

	// "press ok now"? Instead force low confidence with a bare verb the
	// enricher doesn't boost.
	resp := p.HandleUtterance(ctx, "tap")
	require.Zero(t, exec.count())
	assert.Contains(t, resp.Feedback, "Say yes or no")

	resp = p.HandleUtterance(ctx, "yes")
	require.Equal(t, dispatch.StatusExecuted, resp.Result.Status)
	_, ok := exec.last().(dispatch.ClickNth)
	assert.True(t, ok)
}

func TestDenyDropsPendingClick(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{}
	p := newTestPipeline(exec)

	p.HandleUtterance(ctx, "tap")
	resp := p.HandleUtterance(ctx, "no")
	assert.Contains(t, resp.Feedback, "never mind")
	assert.Zero(t, exec.count())

	// A later yes has nothing to land on.
	resp = p.HandleUtterance(ctx, "yes")
	assert.Equal(t, "Nothing to confirm.", resp.Feedback)
	assert.Zero(t, exec.count())
}

func TestCancelClearsEnumeration(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{candidates: 3}
	p := newTestPipeline(exec)

	p.HandleUtterance(ctx, "show me the links")
	p.HandleUtterance(ctx, "never mind")

	resp := p.HandleUtterance(ctx, "two")
	assert.Equal(t, dispatch.StatusUnrecognized, resp.Result.Status)
}

func TestNavigationClearsContext(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{candidates: 3}
	p := newTestPipeline(exec)

	p.HandleUtterance(ctx, "show me the links")
	p.HandleNavigation()

	resp := p.HandleUtterance(ctx, "two")
	assert.Equal(t, dispatch.StatusUnrecognized, resp.Result.Status)
}

func TestAgainReplaysLastCommand(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{}
	p := newTestPipeline(exec)

	p.HandleUtterance(ctx, "scroll down")
	require.Equal(t, 1, exec.count())

	resp := p.HandleUtterance(ctx, "again")
	require.Equal(t, dispatch.StatusExecuted, resp.Result.Status)
	assert.Equal(t, 2, exec.count())
	scroll, ok := exec.last().(dispatch.Scroll)
	require.True(t, ok)
	assert.Equal(t, intent.DirDown, scroll.Direction)
}

func TestStopListeningSurfacesToggle(t *testing.T) {
	ctx := context.Background()
	exec := &pageExecutor{}
	p := newTestPipeline(exec)

	resp := p.HandleUtterance(ctx, "stop listening")
	require.Equal(t, dispatch.StatusExecuted, resp.Result.Status)
	require.NotNil(t, resp.ToggleListening)
	assert.False(t, *resp.ToggleListening)
}
