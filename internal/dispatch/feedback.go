package dispatch

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"voicenav/internal/intent"
)

// Phrasebook turns outcomes into short spoken feedback. Phrases are
// chosen at random within each table so repeated commands don't sound
// robotic.
type Phrasebook struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPhrasebook creates a phrasebook with its own random source.
func NewPhrasebook() *Phrasebook {
	return &Phrasebook{rng: rand.New(rand.NewSource(rand.Int63()))}
}

var unrecognizedPhrases = []string{
	"Sorry, I didn't catch that.",
	"I'm not sure what you meant. Could you rephrase?",
	"I didn't understand that one.",
	"Hmm, that didn't sound like a command I know.",
}

var failedPhrases = []string{
	"I couldn't do that on this page.",
	"That didn't work, sorry.",
	"Something went wrong with that.",
}

// executedPhrases are keyed by canonical verb. %s is the target noun
// (pluralized for enumerations) or left out when the verb needs none.
var executedPhrases = map[string][]string{
	intent.ActionClick: {
		"Clicking that for you.",
		"Done, clicked it.",
		"There you go.",
	},
	intent.ActionShow: {
		"Here are the %s I found.",
		"Showing all the %s on this page.",
		"I've numbered the %s for you.",
	},
	intent.ActionScroll: {
		"Scrolling %s.",
		"Moving %s.",
	},
	intent.ActionNavigate: {
		"Taking you there.",
		"On our way.",
	},
	intent.ActionBack: {
		"Going back.",
		"Back we go.",
	},
	intent.ActionForward: {
		"Going forward.",
	},
	intent.ActionReload: {
		"Refreshing the page.",
		"Reloading now.",
	},
	intent.ActionZoom: {
		"Adjusting the zoom.",
	},
	intent.ActionOpen: {
		"Opening that now.",
	},
	intent.ActionClose: {
		"Closed.",
	},
	intent.ActionDuplicate: {
		"Duplicated the tab.",
	},
	intent.ActionRead: {
		"Reading it out.",
		"Here's what it says.",
	},
	intent.ActionStop: {
		"Okay, stopping.",
	},
	intent.ActionFill: {
		"Ready to type.",
	},
	intent.ActionListen: {
		"Okay.",
	},
}

// Unrecognized is spoken when the confidence gate rejects a command.
func (p *Phrasebook) Unrecognized() string {
	return p.pick(unrecognizedPhrases)
}

// Unmapped is spoken when a verb has no page action.
func (p *Phrasebook) Unmapped(action string) string {
	return fmt.Sprintf("I understood %q but can't do that yet.", action)
}

// Failed is spoken when the executor reports an error.
func (p *Phrasebook) Failed(cmd intent.Command) string {
	return p.pick(failedPhrases)
}

// Executed is spoken after a successful action. Enumerations mention
// the count so the user knows the range they can pick from.
func (p *Phrasebook) Executed(cmd intent.Command, outcome Outcome) string {
	if cmd.Action == intent.ActionShow && outcome.Candidates > 0 {
		noun := pluralize(cmd.Target)
		return fmt.Sprintf("I found %d %s. Say a number to pick one.", outcome.Candidates, noun)
	}

	phrases, ok := executedPhrases[cmd.Action]
	if !ok {
		return "Done."
	}
	phrase := p.pick(phrases)
	if strings.Contains(phrase, "%s") {
		arg := cmd.Direction
		if cmd.Action == intent.ActionShow {
			arg = pluralize(cmd.Target)
		}
		if arg == "" {
			arg = "that"
		}
		return fmt.Sprintf(phrase, arg)
	}
	return phrase
}

// ConfirmPrompt asks the user to approve a low-certainty click.
func (p *Phrasebook) ConfirmPrompt(label string) string {
	return fmt.Sprintf("Did you mean %q? Say yes or no.", label)
}

// Cancelled acknowledges a dropped pending command.
func (p *Phrasebook) Cancelled() string {
	return "Okay, never mind."
}

func (p *Phrasebook) pick(phrases []string) string {
	if len(phrases) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return phrases[p.rng.Intn(len(phrases))]
}

func pluralize(noun string) string {
	switch noun {
	case "":
		return "elements"
	case "all":
		return "clickable elements"
	}
	if strings.HasSuffix(noun, "s") {
		return noun
	}
	return noun + "s"
}
