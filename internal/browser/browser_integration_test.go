//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenav/internal/browser"
	"voicenav/internal/config"
	"voicenav/internal/dispatch"
	"voicenav/internal/inject"
	"voicenav/internal/session"
)

// Needs a local Chrome. Run with: go test -tags integration ./internal/browser

func TestManagerInjectionLifecycle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body><a href="/a">First</a><a href="/b">Second</a><button>Go</button><input placeholder="Email address"></body></html>`)
	}))
	defer ts.Close()

	cfg := config.InjectionConfig{Headless: true, NavigationTimeoutMs: 10000}
	m := browser.NewManager(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, m.Start(ctx))
	defer m.Shutdown(context.Background())

	store, err := session.Open(t.TempDir() + "/session.db")
	require.NoError(t, err)
	defer store.Close()

	orch := inject.New(store, m, 2*time.Second, 6*time.Second)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go m.Watch(watchCtx, orch)

	require.Eventually(t, func() bool {
		handle, _, err := m.FocusedPage(ctx)
		return err == nil && handle != ""
	}, 15*time.Second, 200*time.Millisecond)

	handle, _, err := m.FocusedPage(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Navigate(ctx, handle, ts.URL))

	// Toggle on: scope becomes active and the script lands.
	require.NoError(t, orch.ToggleOn(ctx, handle, ts.URL))

	// Injection is idempotent.
	require.NoError(t, m.Inject(ctx, handle))

	// Removal leaves the page clean enough to re-inject.
	require.NoError(t, m.Remove(ctx, handle))
	require.NoError(t, m.Inject(ctx, handle))

	// Spoken descriptors resolve against what the page shows.
	exec := browser.NewExecutor(m)
	outcome, err := exec.Execute(ctx, dispatch.FillField{Descriptor: "email"})
	require.NoError(t, err)
	assert.Contains(t, outcome.Message, "Email")

	outcome, err = exec.Execute(ctx, dispatch.ClickNth{Descriptor: "second"})
	require.NoError(t, err)
	assert.True(t, outcome.OK)

	active, err := store.IsActive(ctx, "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, active)
}
