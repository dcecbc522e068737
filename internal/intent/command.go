// Package intent turns recognized speech text into structured commands.
//
// Parsing has two paths:
//
//	Utterance: "could you please show me all the buttons"
//	     |
//	Parser.Parse()
//	     |
//	1. Normalize (lowercase, strip punctuation, collapse whitespace)
//	2. Primary path: synonym-table matching over tokens and bigrams
//	3. Enrichment path: external linguistic analyzer, preferred only
//	   when its verb/noun extraction is unambiguous
//	4. Additive confidence scoring, capped at 1.0
//
// The primary path is deterministic: the same utterance always yields
// the same Command.
package intent

// Direction is the closed direction vocabulary.
const (
	DirUp      = "up"
	DirDown    = "down"
	DirLeft    = "left"
	DirRight   = "right"
	DirTop     = "top"
	DirBottom  = "bottom"
	DirForward = "forward"
	DirBack    = "back"
)

// Command is the structured result of parsing one utterance.
// Invariant: Success == (Action != ""). A command with no verb is not
// actionable even when other slots resolved, and carries Confidence 0.
type Command struct {
	Action       string  `json:"action,omitempty"`
	Target       string  `json:"target,omitempty"`
	Direction    string  `json:"direction,omitempty"`
	Number       *int    `json:"number,omitempty"`
	Descriptor   string  `json:"descriptor,omitempty"`
	Confirmation string  `json:"confirmation,omitempty"`
	RawText      string  `json:"raw_text,omitempty"`
	Confidence   float64 `json:"confidence"`
	Success      bool    `json:"success"`
}

// HasAction reports whether the action slot resolved.
func (c Command) HasAction() bool { return c.Action != "" }

// HasTarget reports whether the target slot resolved.
func (c Command) HasTarget() bool { return c.Target != "" }

// HasNumber reports whether the number slot resolved.
func (c Command) HasNumber() bool { return c.Number != nil }

// Num returns the number slot, or 0 when absent.
func (c Command) Num() int {
	if c.Number == nil {
		return 0
	}
	return *c.Number
}

// IsBareNumber reports whether this command is a candidate follow-up:
// a number with neither action nor target.
func (c Command) IsBareNumber() bool {
	return c.HasNumber() && !c.HasAction() && !c.HasTarget()
}

// Enrichment is what the external linguistic analyzer returns for an
// utterance: a Command plus how many candidate verb/noun roots it saw.
// A slot is only preferred over the primary path when its candidate
// count is at most one.
type Enrichment struct {
	Command        Command
	VerbCandidates int
	NounCandidates int
}
