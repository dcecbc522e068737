// Package browser owns the Chrome connection. It translates CDP page
// lifecycle events into injection decisions and carries the control
// script in and out of pages.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"voicenav/internal/config"
	"voicenav/internal/inject"
	"voicenav/internal/logging"
)

// ErrRestrictedPage is returned for pages the control script must never
// enter (browser UI, devtools, raw data views).
var ErrRestrictedPage = errors.New("restricted page")

// restrictedPrefixes are URL schemes injection refuses outright.
var restrictedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"devtools://",
	"about:",
	"data:",
	"blob:",
	"view-source:",
}

// IsRestricted reports whether the control script may not enter pageURL.
func IsRestricted(pageURL string) bool {
	for _, prefix := range restrictedPrefixes {
		if strings.HasPrefix(pageURL, prefix) {
			return true
		}
	}
	return false
}

// Manager owns the browser connection and the tracked pages. It
// implements inject.Injector: page handles are CDP target IDs.
type Manager struct {
	cfg config.InjectionConfig

	mu         sync.RWMutex
	browser    *rod.Browser
	controlURL string
	pages      map[string]*rod.Page
	focused    string
}

// NewManager creates an unconnected manager.
func NewManager(cfg config.InjectionConfig) *Manager {
	return &Manager{cfg: cfg, pages: make(map[string]*rod.Page)}
}

// Start connects to an existing Chrome via the configured debugger URL,
// or launches one when none is configured.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.Browser("stale browser connection, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
		m.pages = make(map[string]*rod.Page)
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		url, err := launcher.New().Headless(m.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	logging.Browser("connected to %s", controlURL)
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *Manager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected reports whether a browser connection exists.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Shutdown detaches from every page and closes the connection.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages = make(map[string]*rod.Page)

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.controlURL = ""
	return err
}

// Watch attaches to every open page and streams its top-level
// navigations into the orchestrator. New targets are picked up as the
// browser creates them. Blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, orch *inject.Orchestrator) error {
	m.mu.RLock()
	browser := m.browser
	m.mu.RUnlock()
	if browser == nil {
		return errors.New("browser not connected")
	}

	pages, err := browser.Pages()
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	for _, page := range pages {
		m.track(ctx, page, orch)
	}

	browser.Context(ctx).EachEvent(
		func(ev *proto.TargetTargetCreated) {
			if ev.TargetInfo.Type != proto.TargetTargetInfoTypePage {
				return
			}
			page, err := browser.PageFromTarget(ev.TargetInfo.TargetID)
			if err != nil {
				logging.Browser("attach to new target %s failed: %v", ev.TargetInfo.TargetID, err)
				return
			}
			m.track(ctx, page, orch)
		},
		func(ev *proto.TargetTargetInfoChanged) {
			// Redundant with PageFrameNavigated for most navigations;
			// the orchestrator's cooldown collapses the pair. Catches
			// URL changes that never fire a frame event (history API).
			if ev.TargetInfo.Type != proto.TargetTargetInfoTypePage {
				return
			}
			if IsRestricted(ev.TargetInfo.URL) {
				return
			}
			handle := string(ev.TargetInfo.TargetID)
			m.mu.RLock()
			_, tracked := m.pages[handle]
			m.mu.RUnlock()
			if !tracked {
				return
			}
			if err := orch.HandleNavigation(ctx, handle, ev.TargetInfo.URL, true); err != nil {
				logging.Browser("target update handling for %s: %v", handle, err)
			}
		},
	)()
	return ctx.Err()
}

// track registers a page and subscribes to its navigation events.
func (m *Manager) track(ctx context.Context, page *rod.Page, orch *inject.Orchestrator) {
	handle := string(page.TargetID)

	m.mu.Lock()
	if _, known := m.pages[handle]; known {
		m.mu.Unlock()
		return
	}
	m.pages[handle] = page
	if m.focused == "" {
		m.focused = handle
	}
	m.mu.Unlock()

	logging.Browser("tracking page %s", handle)

	go func() {
		page.Context(ctx).EachEvent(func(ev *proto.PageFrameNavigated) {
			// Only the top frame drives injection. Frames with a parent
			// are iframes.
			topLevel := ev.Frame.ParentID == ""
			if topLevel && IsRestricted(ev.Frame.URL) {
				logging.Browser("restricted page %s, skipping", ev.Frame.URL)
				return
			}
			if err := orch.HandleNavigation(ctx, handle, ev.Frame.URL, topLevel); err != nil {
				logging.Browser("navigation handling for %s: %v", handle, err)
			}
		})()

		m.mu.Lock()
		delete(m.pages, handle)
		if m.focused == handle {
			m.focused = ""
		}
		m.mu.Unlock()
		logging.Browser("page %s detached", handle)
	}()
}

// page resolves a handle to its tracked page.
func (m *Manager) page(handle string) (*rod.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[handle]
	if !ok {
		return nil, fmt.Errorf("unknown page %s", handle)
	}
	return page, nil
}

// FocusedPage returns the handle and URL of the page the user is on.
func (m *Manager) FocusedPage(ctx context.Context) (handle, pageURL string, err error) {
	m.mu.RLock()
	handle = m.focused
	page := m.pages[handle]
	m.mu.RUnlock()
	if page == nil {
		return "", "", errors.New("no focused page")
	}

	info, err := page.Context(ctx).Info()
	if err != nil {
		return "", "", fmt.Errorf("page info: %w", err)
	}
	return handle, info.URL, nil
}

// Navigate drives a tracked page to url.
func (m *Manager) Navigate(ctx context.Context, pageHandle, url string) error {
	page, err := m.page(pageHandle)
	if err != nil {
		return err
	}
	if err := page.Context(ctx).Timeout(m.cfg.NavigationTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Inject installs the control script into the page. Idempotent: the
// script guards itself with a window flag, so re-evaluating on a page
// that already has it is a no-op.
func (m *Manager) Inject(ctx context.Context, pageHandle string) error {
	page, err := m.page(pageHandle)
	if err != nil {
		return err
	}

	info, err := page.Context(ctx).Info()
	if err != nil {
		return fmt.Errorf("page info: %w", err)
	}
	if IsRestricted(info.URL) {
		return fmt.Errorf("%w: %s", ErrRestrictedPage, info.URL)
	}

	_, err = page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           controlScript,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return fmt.Errorf("evaluate control script: %w", err)
	}
	return nil
}

// Remove tears the control script out of the page.
func (m *Manager) Remove(ctx context.Context, pageHandle string) error {
	page, err := m.page(pageHandle)
	if err != nil {
		return err
	}

	_, err = page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			const w = window;
			if (!w.__voicenavHooked) return false;
			if (w.__voicenav && typeof w.__voicenav.teardown === 'function') {
				try { w.__voicenav.teardown(); } catch (e) {}
			}
			delete w.__voicenav;
			delete w.__voicenavHooked;
			return true;
		}
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return fmt.Errorf("evaluate removal: %w", err)
	}
	return nil
}
