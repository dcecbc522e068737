// Package nlp is the HTTP client for the external linguistic analyzer.
// The analyzer is optional: the client reports availability from a
// cached health probe so the parse path never blocks on a dead service.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"voicenav/internal/config"
	"voicenav/internal/intent"
	"voicenav/internal/logging"
	"voicenav/internal/metrics"
)

const (
	healthPath = "/health"
	parsePath  = "/api/voice/parse"

	// maxResponseBytes bounds what we will read from the analyzer.
	maxResponseBytes = 1 << 20
)

// Client talks to the analyzer service. Implements intent.Enricher.
type Client struct {
	baseURL   string
	http      *http.Client
	healthTTL time.Duration

	mu          sync.Mutex
	healthyAt   time.Time
	lastHealthy bool
}

// NewClient builds a client from config. Returns nil when no analyzer
// is configured; the parser treats a nil enricher as primary-only.
func NewClient(cfg config.NLPConfig) *Client {
	if !cfg.Enabled() {
		return nil
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: cfg.RequestTimeout()},
		healthTTL: cfg.HealthTTL(),
	}
}

// Available probes the analyzer's health endpoint. The verdict is
// cached for the configured TTL so bursts of utterances cost one probe.
func (c *Client) Available(ctx context.Context) bool {
	c.mu.Lock()
	if time.Since(c.healthyAt) < c.healthTTL {
		healthy := c.lastHealthy
		c.mu.Unlock()
		return healthy
	}
	c.mu.Unlock()

	healthy := c.probe(ctx)

	c.mu.Lock()
	c.healthyAt = time.Now()
	c.lastHealthy = healthy
	c.mu.Unlock()
	return healthy
}

func (c *Client) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logging.NLPDebug("health probe failed: %v", err)
		metrics.EnrichmentDegradations.WithLabelValues("unreachable").Inc()
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode == http.StatusOK
}

// parseRequest is the analyzer's request body.
type parseRequest struct {
	Text string `json:"text"`
}

// parseResponse is the analyzer's response envelope. Candidate counts
// report extraction ambiguity; a slot with more than one candidate is
// not trusted over the synonym tables.
type parseResponse struct {
	Data *struct {
		Action         string  `json:"action"`
		Target         string  `json:"target"`
		Direction      string  `json:"direction"`
		Number         *int    `json:"number"`
		Descriptor     string  `json:"descriptor"`
		Confidence     float64 `json:"confidence"`
		VerbCandidates int     `json:"verb_candidates"`
		NounCandidates int     `json:"noun_candidates"`
	} `json:"data"`
	Error string `json:"error"`
}

// Enrich submits one utterance for linguistic analysis. Every failure
// mode returns an error; the caller decides that degradation is silent.
func (c *Client) Enrich(ctx context.Context, text string) (intent.Enrichment, error) {
	body, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return intent.Enrichment{}, fmt.Errorf("encode parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+parsePath, bytes.NewReader(body))
	if err != nil {
		return intent.Enrichment{}, fmt.Errorf("build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	timer := logging.StartTimer(logging.CategoryNLP, "enrich")
	resp, err := c.http.Do(req)
	timer.Stop()
	if err != nil {
		metrics.EnrichmentDegradations.WithLabelValues("error").Inc()
		return intent.Enrichment{}, fmt.Errorf("analyzer request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.EnrichmentDegradations.WithLabelValues("error").Inc()
		return intent.Enrichment{}, fmt.Errorf("read analyzer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.EnrichmentDegradations.WithLabelValues("error").Inc()
		return intent.Enrichment{}, fmt.Errorf("analyzer returned %d", resp.StatusCode)
	}

	var pr parseResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		metrics.EnrichmentDegradations.WithLabelValues("malformed").Inc()
		return intent.Enrichment{}, fmt.Errorf("decode analyzer response: %w", err)
	}
	if pr.Error != "" {
		metrics.EnrichmentDegradations.WithLabelValues("error").Inc()
		return intent.Enrichment{}, fmt.Errorf("analyzer error: %s", pr.Error)
	}
	if pr.Data == nil {
		metrics.EnrichmentDegradations.WithLabelValues("malformed").Inc()
		return intent.Enrichment{}, fmt.Errorf("analyzer response missing data")
	}

	d := pr.Data
	return intent.Enrichment{
		Command: intent.Command{
			Action:     d.Action,
			Target:     d.Target,
			Direction:  d.Direction,
			Number:     d.Number,
			Descriptor: d.Descriptor,
		},
		VerbCandidates: d.VerbCandidates,
		NounCandidates: d.NounCandidates,
	}, nil
}
