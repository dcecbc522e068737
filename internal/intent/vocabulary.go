package intent

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical actions. The dispatcher maps every one of these; anything
// else that reaches it is reported as unmapped.
const (
	ActionClick     = "click"
	ActionShow      = "show"
	ActionScroll    = "scroll"
	ActionNavigate  = "navigate"
	ActionOpen      = "open"
	ActionClose     = "close"
	ActionZoom      = "zoom"
	ActionReload    = "reload"
	ActionBack      = "back"
	ActionForward   = "forward"
	ActionStop      = "stop"
	ActionRead      = "read"
	ActionFill      = "fill"
	ActionDuplicate = "duplicate"
	ActionListen    = "listen"
	ActionCancel    = "cancel"
	ActionConfirm   = "confirm"
	ActionDeny      = "deny"
)

// Vocabulary holds the data-driven synonym tables: canonical action ->
// surface verbs/phrases, canonical target -> surface nouns, and the
// direction vocabulary. Tables are plain data so they can be enumerated,
// tested, and extended from a yaml overlay independently of control flow.
type Vocabulary struct {
	Actions    map[string][]string `yaml:"actions"`
	Targets    map[string][]string `yaml:"targets"`
	Directions map[string][]string `yaml:"directions"`

	// token -> canonical, built once per vocabulary
	actionIndex map[string]string
	targetIndex map[string]string
	dirIndex    map[string]string
	// multi-word surface forms, longest first
	actionPhrases []phrase
}

type phrase struct {
	surface   string // normalized, space-separated
	canonical string
	words     int
}

// DefaultVocabulary returns the built-in synonym tables.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		Actions: map[string][]string{
			ActionClick:     {"click", "press", "tap", "select", "push", "hit", "activate", "choose", "pick"},
			ActionShow:      {"show", "list", "display", "see", "reveal", "highlight", "locate", "identify", "point out", "show me", "let me see"},
			ActionScroll:    {"scroll", "swipe", "slide", "glide", "page down", "page up"},
			ActionNavigate:  {"navigate", "go to", "visit", "browse to", "take me to"},
			ActionOpen:      {"open", "launch", "start", "begin", "open up"},
			ActionClose:     {"close", "shut", "exit", "dismiss", "hide"},
			ActionZoom:      {"zoom", "enlarge", "magnify", "shrink", "zoom in", "zoom out", "make bigger", "make smaller"},
			ActionReload:    {"reload", "refresh", "reload page", "refresh page"},
			ActionBack:      {"back", "go back", "previous page", "return"},
			ActionForward:   {"forward", "go forward", "next page", "advance"},
			ActionStop:      {"stop", "pause", "halt", "freeze", "silence"},
			ActionRead:      {"read", "say", "tell", "speak", "announce", "recite"},
			ActionFill:      {"fill", "enter", "type", "input", "write", "insert"},
			ActionDuplicate: {"duplicate", "copy", "clone", "replicate", "duplicate tab", "clone tab"},
			ActionListen:    {"listen", "start listening", "stop listening", "wake up", "voice on", "voice off"},
			ActionCancel:    {"cancel", "nevermind", "never mind", "forget it", "deactivate"},
			ActionConfirm:   {"yes", "yeah", "yep", "sure", "okay", "ok", "alright", "correct", "affirmative"},
			ActionDeny:      {"no", "nope", "nah", "negative", "incorrect"},
		},
		Targets: map[string][]string{
			"button":  {"button", "buttons", "btn", "submit"},
			"link":    {"link", "links", "hyperlink", "url", "anchor"},
			"menu":    {"menu", "menus", "dropdown", "navigation", "nav", "navbar"},
			"field":   {"input", "inputs", "field", "fields", "textbox", "textarea", "form"},
			"tab":     {"tab", "tabs", "window", "windows"},
			"heading": {"heading", "header", "title", "headings"},
			"image":   {"image", "images", "picture", "pictures", "photo", "photos", "thumbnail"},
			"video":   {"video", "videos", "clip", "clips", "media"},
			"text":    {"text", "paragraph", "content", "sentence"},
			"table":   {"table", "tables", "grid", "spreadsheet"},
			"list":    {"list", "lists", "items"},
			"page":    {"page", "site", "website", "webpage"},
			"all":     {"everything", "clickable", "clickables", "anything"},
		},
		Directions: map[string][]string{
			DirUp:      {"up", "upward", "upwards", "above", "higher"},
			DirDown:    {"down", "downward", "downwards", "below", "lower"},
			DirLeft:    {"left", "leftward"},
			DirRight:   {"right", "rightward"},
			DirTop:     {"top", "beginning"},
			DirBottom:  {"bottom", "end"},
			DirForward: {"forward", "next", "ahead"},
			DirBack:    {"back", "backward", "backwards"},
		},
	}
	v.buildIndexes()
	return v
}

// LoadOverlay reads a yaml overlay file and merges its synonym lists
// into a copy of this vocabulary. Unknown canonical keys are accepted:
// the dispatcher reports them as unmapped rather than the parser
// rejecting them, so vocabularies can lead dispatch support.
func (v *Vocabulary) LoadOverlay(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary overlay: %w", err)
	}

	var overlay Vocabulary
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse vocabulary overlay: %w", err)
	}

	merged := &Vocabulary{
		Actions:    mergeTables(v.Actions, overlay.Actions),
		Targets:    mergeTables(v.Targets, overlay.Targets),
		Directions: mergeTables(v.Directions, overlay.Directions),
	}
	merged.buildIndexes()
	return merged, nil
}

func mergeTables(base, extra map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base))
	for k, vs := range base {
		out[k] = append([]string(nil), vs...)
	}
	for k, vs := range extra {
		out[k] = append(out[k], vs...)
	}
	return out
}

// buildIndexes precomputes token and phrase lookups. Single-word surface
// forms index directly; multi-word forms are matched against token
// windows before single tokens so "go back" wins over "go".
func (v *Vocabulary) buildIndexes() {
	v.actionIndex = make(map[string]string)
	v.actionPhrases = nil
	// Deterministic iteration: canonical keys sorted so a surface form
	// claimed by two actions always resolves the same way.
	for _, canonical := range sortedKeys(v.Actions) {
		for _, s := range v.Actions[canonical] {
			s = strings.ToLower(strings.TrimSpace(s))
			if strings.Contains(s, " ") {
				v.actionPhrases = append(v.actionPhrases, phrase{
					surface:   s,
					canonical: canonical,
					words:     len(strings.Fields(s)),
				})
				continue
			}
			if _, taken := v.actionIndex[s]; !taken {
				v.actionIndex[s] = canonical
			}
		}
	}
	sort.SliceStable(v.actionPhrases, func(i, j int) bool {
		return v.actionPhrases[i].words > v.actionPhrases[j].words
	})

	v.targetIndex = make(map[string]string)
	for _, canonical := range sortedKeys(v.Targets) {
		for _, s := range v.Targets[canonical] {
			s = strings.ToLower(strings.TrimSpace(s))
			if _, taken := v.targetIndex[s]; !taken {
				v.targetIndex[s] = canonical
			}
		}
	}

	v.dirIndex = make(map[string]string)
	for _, canonical := range sortedKeys(v.Directions) {
		for _, s := range v.Directions[canonical] {
			s = strings.ToLower(strings.TrimSpace(s))
			if _, taken := v.dirIndex[s]; !taken {
				v.dirIndex[s] = canonical
			}
		}
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KnownAction reports whether the canonical action exists in the tables.
func (v *Vocabulary) KnownAction(action string) bool {
	_, ok := v.Actions[action]
	return ok
}
