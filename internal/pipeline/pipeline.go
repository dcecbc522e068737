// Package pipeline wires the full utterance path: parse, resolve
// conversational context, gate, execute, speak.
package pipeline

import (
	"context"
	"sync"

	"voicenav/internal/dispatch"
	"voicenav/internal/followup"
	"voicenav/internal/intent"
	"voicenav/internal/logging"
)

// confirmBand is the confidence below which a click is confirmed with
// the user instead of executed outright. Commands under the dispatch
// threshold never get this far.
const confirmBand = 0.5

// Response is what one utterance produced.
type Response struct {
	// Command is the fully resolved command that was acted on.
	Command intent.Command
	// Result is the dispatcher's verdict, zero when dispatch was
	// short-circuited (follow-up miss, confirmation prompt).
	Result dispatch.Result
	// Feedback is the sentence to speak back.
	Feedback string
	// ToggleListening is non-nil when the utterance controls the
	// listener itself; true means start, false means stop.
	ToggleListening *bool
}

// Pipeline runs utterances end to end.
type Pipeline struct {
	parser     *intent.Parser
	tracker    *followup.Tracker
	dispatcher *dispatch.Dispatcher
	phrases    *dispatch.Phrasebook

	mu      sync.Mutex
	pending *intent.Command // awaiting yes/no
}

// New assembles a pipeline.
func New(parser *intent.Parser, tracker *followup.Tracker, dispatcher *dispatch.Dispatcher) *Pipeline {
	return &Pipeline{
		parser:     parser,
		tracker:    tracker,
		dispatcher: dispatcher,
		phrases:    dispatch.NewPhrasebook(),
	}
}

// HandleUtterance processes one recognized utterance.
func (p *Pipeline) HandleUtterance(ctx context.Context, text string) Response {
	cmd := p.parser.ParseContext(ctx, text)
	logging.Intent("parsed %q: action=%s target=%s confidence=%.2f", text, cmd.Action, cmd.Target, cmd.Confidence)

	// "again", "click it": rewrite against conversational memory before
	// anything else looks at the command.
	cmd = p.tracker.ResolveReference(cmd)

	// A bare number may complete a pending enumeration.
	if res := p.tracker.Resolve(cmd); res.Resolved {
		cmd = res.Command
	} else if res.Reason == "out_of_range" {
		return Response{
			Command:  cmd,
			Feedback: "That number isn't on the list. Try another one.",
		}
	}

	switch cmd.Action {
	case intent.ActionConfirm:
		return p.handleConfirm(ctx, cmd)
	case intent.ActionDeny, intent.ActionCancel:
		return p.handleCancel(cmd)
	}

	// A hesitant click gets confirmed instead of executed.
	if cmd.Success && cmd.Confidence < confirmBand && cmd.Action == intent.ActionClick {
		p.setPending(cmd)
		label := cmd.Descriptor
		if label == "" {
			label = cmd.Target
		}
		return Response{Command: cmd, Feedback: p.phrases.ConfirmPrompt(label)}
	}

	return p.execute(ctx, cmd)
}

// handleConfirm runs the command that was awaiting a yes.
func (p *Pipeline) handleConfirm(ctx context.Context, cmd intent.Command) Response {
	pending := p.takePending()
	if pending == nil {
		return Response{Command: cmd, Feedback: "Nothing to confirm."}
	}
	// Confirmed commands bypass the confidence gate: the user just
	// approved this exact action.
	pending.Confidence = 1.0
	return p.execute(ctx, *pending)
}

// handleCancel drops pending state, both confirmation and enumeration.
func (p *Pipeline) handleCancel(cmd intent.Command) Response {
	p.takePending()
	p.tracker.Clear()
	return Response{Command: cmd, Feedback: p.phrases.Cancelled()}
}

func (p *Pipeline) execute(ctx context.Context, cmd intent.Command) Response {
	result := p.dispatcher.Dispatch(ctx, cmd)
	resp := Response{Command: cmd, Result: result, Feedback: result.Feedback}

	if result.Status != dispatch.StatusExecuted {
		return resp
	}

	if result.Outcome.Candidates > 0 {
		p.tracker.Await(cmd, result.Outcome.Candidates)
	}
	p.tracker.RecordOutcome(cmd)

	if toggle, ok := result.Action.(dispatch.ToggleListening); ok {
		on := toggle.On
		resp.ToggleListening = &on
	}
	return resp
}

// HandleNavigation tells the pipeline a page changed: pending context
// refers to elements that no longer exist.
func (p *Pipeline) HandleNavigation() {
	p.takePending()
	p.tracker.Clear()
}

func (p *Pipeline) setPending(cmd intent.Command) {
	p.mu.Lock()
	p.pending = &cmd
	p.mu.Unlock()
}

func (p *Pipeline) takePending() *intent.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	pending := p.pending
	p.pending = nil
	return pending
}
