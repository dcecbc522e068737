package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenav/internal/config"
	"voicenav/internal/intent"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.NLPConfig{BaseURL: srv.URL, HealthTTLSec: 60})
	require.NotNil(t, c)
	return c, srv
}

func TestNewClientDisabled(t *testing.T) {
	assert.Nil(t, NewClient(config.NLPConfig{}))
}

func TestAvailableCachesVerdict(t *testing.T) {
	var probes atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			probes.Add(1)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.True(t, c.Available(ctx))
	}
	assert.Equal(t, int32(1), probes.Load())
}

func TestAvailableUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(config.NLPConfig{BaseURL: srv.URL, HealthTTLSec: 60})
	srv.Close()

	assert.False(t, c.Available(context.Background()))
}

func TestEnrich(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/voice/parse", r.URL.Path)

		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "show me the buttons", req.Text)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"action":          "show",
				"target":          "button",
				"verb_candidates": 1,
				"noun_candidates": 1,
			},
		})
	}))

	enr, err := c.Enrich(context.Background(), "show me the buttons")
	require.NoError(t, err)
	assert.Equal(t, intent.ActionShow, enr.Command.Action)
	assert.Equal(t, "button", enr.Command.Target)
	assert.Equal(t, 1, enr.VerbCandidates)
}

func TestEnrichFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"missing data", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"analyzer error", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"model not loaded"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			_, err := c.Enrich(context.Background(), "click the button")
			assert.Error(t, err)
		})
	}
}

func TestClientSatisfiesEnricher(t *testing.T) {
	var _ intent.Enricher = (*Client)(nil)
}
