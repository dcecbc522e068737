// Package dispatch routes parsed commands to executable page actions
// and produces the spoken feedback for each outcome.
package dispatch

// Action is one executable page operation. The set is closed: the
// executor can switch over it exhaustively.
type Action interface {
	isAction()
	// Name is the stable identifier used in logs and metrics.
	Name() string
}

// ClickNth clicks the Index-th element of the given kind, or the one
// best matching Descriptor when Index is zero.
type ClickNth struct {
	Target     string
	Index      int
	Descriptor string
}

// ShowAll overlays numbered badges on every element of the given kind.
type ShowAll struct {
	Target string
}

// Scroll moves the viewport. Amount zero means one page.
type Scroll struct {
	Direction string
	Amount    int
}

// HistoryMove walks browser history. Delta is negative for back.
type HistoryMove struct {
	Delta int
}

// GoTo navigates the active tab to a spoken destination.
type GoTo struct {
	Destination string
}

// TabOpKind enumerates tab operations.
type TabOpKind int

const (
	TabOpen TabOpKind = iota
	TabClose
	TabDuplicate
)

// TabOp opens, closes, or duplicates a tab.
type TabOp struct {
	Kind TabOpKind
}

// Zoom changes the page zoom by Delta steps (negative shrinks).
type Zoom struct {
	Delta int
}

// Reload refreshes the active page.
type Reload struct{}

// ReadAloud reads the given content kind from the page.
type ReadAloud struct {
	Target string
}

// StopReading halts speech output.
type StopReading struct{}

// FillField types into the form field matching Descriptor.
type FillField struct {
	Descriptor string
}

// ToggleListening turns the recognition session on or off.
type ToggleListening struct {
	On bool
}

func (ClickNth) isAction()        {}
func (ShowAll) isAction()         {}
func (Scroll) isAction()          {}
func (HistoryMove) isAction()     {}
func (GoTo) isAction()            {}
func (TabOp) isAction()           {}
func (Zoom) isAction()            {}
func (Reload) isAction()          {}
func (ReadAloud) isAction()       {}
func (StopReading) isAction()     {}
func (FillField) isAction()       {}
func (ToggleListening) isAction() {}

func (ClickNth) Name() string    { return "click" }
func (ShowAll) Name() string     { return "show" }
func (Scroll) Name() string      { return "scroll" }
func (HistoryMove) Name() string { return "history" }
func (GoTo) Name() string        { return "goto" }

func (t TabOp) Name() string {
	switch t.Kind {
	case TabClose:
		return "tab_close"
	case TabDuplicate:
		return "tab_duplicate"
	default:
		return "tab_open"
	}
}

func (Zoom) Name() string            { return "zoom" }
func (Reload) Name() string          { return "reload" }
func (ReadAloud) Name() string       { return "read" }
func (StopReading) Name() string     { return "stop_reading" }
func (FillField) Name() string       { return "fill" }
func (ToggleListening) Name() string { return "toggle_listening" }
