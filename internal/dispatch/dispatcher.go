package dispatch

import (
	"context"
	"strings"

	"voicenav/internal/intent"
	"voicenav/internal/logging"
	"voicenav/internal/metrics"
)

// Status classifies what the dispatcher did with a command.
type Status int

const (
	// StatusExecuted means the action ran (see Result.Outcome).
	StatusExecuted Status = iota
	// StatusUnrecognized means the command failed the confidence gate.
	StatusUnrecognized
	// StatusUnmapped means the verb resolved but no action exists for it.
	StatusUnmapped
	// StatusConversational means confirm/deny/cancel, which the caller
	// handles against its own pending state rather than the page.
	StatusConversational
	// StatusFailed means the executor reported an error.
	StatusFailed
)

// Outcome is what the executor reports back for one action.
type Outcome struct {
	OK bool
	// Message is executor-provided detail, e.g. the text of the clicked
	// element.
	Message string
	// Candidates is how many elements an enumerating action surfaced.
	// Non-zero arms the follow-up window.
	Candidates int
}

// Executor runs actions against the live page. The browser layer
// implements this; tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, action Action) (Outcome, error)
}

// Result is the dispatcher's verdict on one command.
type Result struct {
	Status     Status
	Action     Action
	Outcome    Outcome
	Feedback   string
	Confidence float64
}

// Dispatcher gates commands on confidence and maps verbs to actions.
type Dispatcher struct {
	threshold float64
	exec      Executor
	phrases   *Phrasebook
}

// NewDispatcher creates a dispatcher. Commands scoring below threshold
// are rejected as unrecognized before reaching the executor.
func NewDispatcher(threshold float64, exec Executor) *Dispatcher {
	return &Dispatcher{threshold: threshold, exec: exec, phrases: NewPhrasebook()}
}

// Dispatch runs one parsed command end to end: confidence gate, verb
// mapping, execution, feedback.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd intent.Command) Result {
	if !cmd.Success || cmd.Confidence < d.threshold {
		logging.Dispatch("rejected: success=%t confidence=%.2f text=%q", cmd.Success, cmd.Confidence, cmd.RawText)
		metrics.ParseResults.WithLabelValues("unrecognized").Inc()
		return Result{
			Status:     StatusUnrecognized,
			Feedback:   d.phrases.Unrecognized(),
			Confidence: cmd.Confidence,
		}
	}
	metrics.ParseResults.WithLabelValues("ok").Inc()

	switch cmd.Action {
	case intent.ActionConfirm, intent.ActionDeny, intent.ActionCancel:
		return Result{Status: StatusConversational, Confidence: cmd.Confidence}
	}

	action, ok := mapAction(cmd)
	if !ok {
		logging.Dispatch("unmapped verb %q", cmd.Action)
		return Result{
			Status:     StatusUnmapped,
			Feedback:   d.phrases.Unmapped(cmd.Action),
			Confidence: cmd.Confidence,
		}
	}

	metrics.Dispatches.WithLabelValues(action.Name()).Inc()
	outcome, err := d.exec.Execute(ctx, action)
	if err != nil {
		logging.Dispatch("action %s failed: %v", action.Name(), err)
		return Result{
			Status:     StatusFailed,
			Action:     action,
			Feedback:   d.phrases.Failed(cmd),
			Confidence: cmd.Confidence,
		}
	}

	logging.Dispatch("action %s ok, candidates=%d", action.Name(), outcome.Candidates)
	return Result{
		Status:     StatusExecuted,
		Action:     action,
		Outcome:    outcome,
		Feedback:   d.phrases.Executed(cmd, outcome),
		Confidence: cmd.Confidence,
	}
}

// mapAction converts a canonical verb plus slots into an Action.
func mapAction(cmd intent.Command) (Action, bool) {
	switch cmd.Action {
	case intent.ActionClick:
		return ClickNth{Target: cmd.Target, Index: cmd.Num(), Descriptor: cmd.Descriptor}, true
	case intent.ActionShow:
		return ShowAll{Target: cmd.Target}, true
	case intent.ActionScroll:
		dir := cmd.Direction
		if dir == "" {
			dir = intent.DirDown
		}
		return Scroll{Direction: dir, Amount: cmd.Num()}, true
	case intent.ActionBack:
		return HistoryMove{Delta: -1}, true
	case intent.ActionForward:
		return HistoryMove{Delta: 1}, true
	case intent.ActionNavigate:
		if cmd.Direction == intent.DirBack {
			return HistoryMove{Delta: -1}, true
		}
		if cmd.Direction == intent.DirForward {
			return HistoryMove{Delta: 1}, true
		}
		return GoTo{Destination: cmd.Descriptor}, true
	case intent.ActionOpen:
		if cmd.Target == "tab" {
			return TabOp{Kind: TabOpen}, true
		}
		if cmd.Descriptor != "" {
			return GoTo{Destination: cmd.Descriptor}, true
		}
		return ClickNth{Target: cmd.Target, Index: cmd.Num(), Descriptor: cmd.Descriptor}, true
	case intent.ActionClose:
		if cmd.Target == "tab" || cmd.Target == "" {
			return TabOp{Kind: TabClose}, true
		}
		return ClickNth{Target: cmd.Target, Descriptor: cmd.Descriptor}, true
	case intent.ActionDuplicate:
		return TabOp{Kind: TabDuplicate}, true
	case intent.ActionZoom:
		return Zoom{Delta: zoomDelta(cmd)}, true
	case intent.ActionReload:
		return Reload{}, true
	case intent.ActionRead:
		return ReadAloud{Target: cmd.Target}, true
	case intent.ActionStop:
		return StopReading{}, true
	case intent.ActionFill:
		return FillField{Descriptor: cmd.Descriptor}, true
	case intent.ActionListen:
		return ToggleListening{On: listeningOn(cmd)}, true
	}
	return nil, false
}

// zoomDelta decides sign from the surface wording, since the synonym
// table collapses "zoom in" and "zoom out" onto one verb.
func zoomDelta(cmd intent.Command) int {
	norm := intent.Normalize(cmd.RawText)
	for _, w := range []string{"out", "smaller", "shrink", "reduce", "decrease"} {
		if strings.Contains(norm, w) {
			return -1
		}
	}
	return 1
}

func listeningOn(cmd intent.Command) bool {
	norm := intent.Normalize(cmd.RawText)
	for _, w := range []string{"stop", "off", "sleep"} {
		if strings.Contains(norm, w) {
			return false
		}
	}
	return true
}
