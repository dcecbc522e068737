package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"voicenav/internal/dispatch"
	"voicenav/internal/intent"
	"voicenav/internal/logging"
)

// Executor runs dispatch actions against the focused page. History,
// tab, and navigation operations go straight to CDP; element operations
// are forwarded to the injected control script, which owns the DOM.
type Executor struct {
	manager *Manager
}

// NewExecutor creates an executor over the manager's focused page.
func NewExecutor(manager *Manager) *Executor {
	return &Executor{manager: manager}
}

// Execute satisfies dispatch.Executor.
func (e *Executor) Execute(ctx context.Context, action dispatch.Action) (dispatch.Outcome, error) {
	handle, _, err := e.manager.FocusedPage(ctx)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	page, err := e.manager.page(handle)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	page = page.Context(ctx)

	switch a := action.(type) {
	case dispatch.HistoryMove:
		return e.history(page, a.Delta)

	case dispatch.Reload:
		if err := page.Reload(); err != nil {
			return dispatch.Outcome{}, fmt.Errorf("reload: %w", err)
		}
		return dispatch.Outcome{OK: true}, nil

	case dispatch.GoTo:
		url := destinationURL(a.Destination)
		if err := page.Timeout(e.manager.cfg.NavigationTimeout()).Navigate(url); err != nil {
			return dispatch.Outcome{}, fmt.Errorf("navigate to %s: %w", url, err)
		}
		return dispatch.Outcome{OK: true, Message: url}, nil

	case dispatch.TabOp:
		return e.tabOp(ctx, page, a.Kind)

	case dispatch.ShowAll:
		return e.inPage(page, map[string]any{"name": "show", "target": a.Target})

	case dispatch.ClickNth:
		// "click login" carries no index; resolve the descriptor against
		// what is actually on the page first.
		if a.Index == 0 && a.Descriptor != "" {
			return e.clickByDescriptor(page, a)
		}
		return e.inPage(page, map[string]any{
			"name": "click", "target": a.Target, "index": a.Index,
		})

	case dispatch.Scroll:
		return e.inPage(page, map[string]any{
			"name": "scroll", "direction": a.Direction, "amount": a.Amount,
		})

	case dispatch.Zoom:
		return e.inPage(page, map[string]any{"name": "zoom", "delta": a.Delta})

	case dispatch.ReadAloud:
		return e.inPage(page, map[string]any{"name": "read", "target": a.Target})

	case dispatch.FillField:
		return e.fillByDescriptor(page, a)

	case dispatch.StopReading:
		// Speech output lives outside the page; nothing to do here.
		return dispatch.Outcome{OK: true}, nil

	case dispatch.ToggleListening:
		// The listener supervisor owns this; the pipeline intercepts it
		// before dispatch reaches the page.
		return dispatch.Outcome{OK: true}, nil
	}
	return dispatch.Outcome{}, fmt.Errorf("no executor for action %s", action.Name())
}

// clickByDescriptor matches a spoken descriptor ("login", "contact
// us") against the visible candidates and clicks the best one.
func (e *Executor) clickByDescriptor(page *rod.Page, a dispatch.ClickNth) (dispatch.Outcome, error) {
	elements, err := e.listElements(page, a.Target)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	el, ok := matchElement(a.Descriptor, elements)
	if !ok {
		return dispatch.Outcome{}, fmt.Errorf("no element matching %q", a.Descriptor)
	}
	// The index addresses the fresh enumeration, not a leftover numbered
	// overlay.
	return e.inPage(page, map[string]any{
		"name": "click", "target": a.Target, "index": el.Index, "fresh": true,
	})
}

// fillByDescriptor focuses the field whose label best matches the
// descriptor.
func (e *Executor) fillByDescriptor(page *rod.Page, a dispatch.FillField) (dispatch.Outcome, error) {
	fields, err := e.listElements(page, "field")
	if err != nil {
		return dispatch.Outcome{}, err
	}
	el, ok := matchElement(a.Descriptor, fields)
	if !ok {
		return dispatch.Outcome{}, fmt.Errorf("no field matching %q", a.Descriptor)
	}
	return e.inPage(page, map[string]any{"name": "fill", "index": el.Index})
}

// matchElement resolves a descriptor to the element it refers to.
func matchElement(descriptor string, elements []intent.Element) (intent.Element, bool) {
	idx, score := intent.BestMatch(descriptor, elements)
	if idx < 0 {
		return intent.Element{}, false
	}
	logging.Browser("descriptor %q matched element %d (%q, score %.2f)",
		descriptor, elements[idx].Index, elements[idx].Text, score)
	return elements[idx], true
}

// listElements asks the control script for the visible candidates of a
// kind, without drawing badges.
func (e *Executor) listElements(page *rod.Page, kind string) ([]intent.Element, error) {
	raw, err := e.evalAction(page, map[string]any{"name": "list", "target": kind})
	if err != nil {
		return nil, err
	}
	var elements []intent.Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("decode element list: %w", err)
	}
	return elements, nil
}

// evalAction runs one action inside the injected control script and
// returns its raw result.
func (e *Executor) evalAction(page *rod.Page, action map[string]any) (json.RawMessage, error) {
	res, err := page.Evaluate(&rod.EvalOptions{
		JS: `
		(action) => {
			if (!window.__voicenav) return { error: 'not injected' };
			return { result: window.__voicenav.execute(action) };
		}
		`,
		JSArgs:       []interface{}{action},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("in-page action: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal in-page result: %w", err)
	}

	var envelope struct {
		Error  string          `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode in-page result: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("in-page action: %s", envelope.Error)
	}
	return envelope.Result, nil
}

// inPage forwards an action to the injected control script.
func (e *Executor) inPage(page *rod.Page, action map[string]any) (dispatch.Outcome, error) {
	result, err := e.evalAction(page, action)
	if err != nil {
		return dispatch.Outcome{}, err
	}

	outcome := dispatch.Outcome{OK: true}

	// An enumeration returns the numbered items; the count arms the
	// follow-up window.
	var items []intent.Element
	if err := json.Unmarshal(result, &items); err == nil {
		outcome.Candidates = len(items)
		return outcome, nil
	}

	var text string
	if err := json.Unmarshal(result, &text); err == nil {
		outcome.Message = text
	}
	return outcome, nil
}

func (e *Executor) history(page *rod.Page, delta int) (dispatch.Outcome, error) {
	var err error
	if delta < 0 {
		err = page.NavigateBack()
	} else {
		err = page.NavigateForward()
	}
	if err != nil {
		return dispatch.Outcome{}, fmt.Errorf("history move: %w", err)
	}
	return dispatch.Outcome{OK: true}, nil
}

func (e *Executor) tabOp(ctx context.Context, page *rod.Page, kind dispatch.TabOpKind) (dispatch.Outcome, error) {
	e.manager.mu.RLock()
	browser := e.manager.browser
	e.manager.mu.RUnlock()
	if browser == nil {
		return dispatch.Outcome{}, fmt.Errorf("browser not connected")
	}

	switch kind {
	case dispatch.TabOpen:
		if _, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"}); err != nil {
			return dispatch.Outcome{}, fmt.Errorf("open tab: %w", err)
		}
	case dispatch.TabClose:
		if err := page.Close(); err != nil {
			return dispatch.Outcome{}, fmt.Errorf("close tab: %w", err)
		}
	case dispatch.TabDuplicate:
		info, err := page.Info()
		if err != nil {
			return dispatch.Outcome{}, fmt.Errorf("page info: %w", err)
		}
		if _, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: info.URL}); err != nil {
			return dispatch.Outcome{}, fmt.Errorf("duplicate tab: %w", err)
		}
	}
	logging.Browser("tab operation %d done", kind)
	return dispatch.Outcome{OK: true}, nil
}

// destinationURL turns a spoken destination into something navigable.
func destinationURL(spoken string) string {
	if spoken == "" {
		return "about:blank"
	}
	// "example com" -> "example.com". Anything without a dot goes to a
	// search instead of guessing a TLD.
	guess := spokenToHost(spoken)
	if guess != "" {
		return "https://" + guess
	}
	return "https://duckduckgo.com/?q=" + queryEscape(spoken)
}
