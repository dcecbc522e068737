package intent

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"voicenav/internal/logging"
)

// Weights is the additive confidence policy. The exact values are
// tunable; the parser only relies on them being positive so confidence
// stays monotone in the number of resolved slots.
type Weights struct {
	Action    float64
	Target    float64
	Modifier  float64 // direction or number
	Agreement float64 // enrichment agreed with (or solely supplied) the action
}

// DefaultWeights returns the standard scoring policy.
func DefaultWeights() Weights {
	return Weights{Action: 0.3, Target: 0.3, Modifier: 0.2, Agreement: 0.2}
}

// Enricher is the contract for the external linguistic analyzer.
// Availability is probed separately so an unreachable service is never
// paid for on the parse path.
type Enricher interface {
	// Available reports whether the enrichment path should be attempted.
	Available(ctx context.Context) bool
	// Enrich submits a normalized utterance for linguistic analysis.
	Enrich(ctx context.Context, text string) (Enrichment, error)
}

// fillerWords are dropped before descriptor extraction.
var fillerWords = map[string]bool{
	"could": true, "you": true, "please": true, "kindly": true, "want": true,
	"would": true, "like": true, "need": true, "the": true, "a": true,
	"an": true, "this": true, "that": true, "just": true, "me": true,
	"all": true, "of": true, "on": true, "in": true, "to": true, "for": true,
	"my": true, "can": true, "i": true, "it": true,
}

// Parser converts utterances into Commands. Safe for concurrent use;
// the vocabulary pointer is swapped wholesale on reload.
type Parser struct {
	mu       sync.RWMutex
	vocab    *Vocabulary
	enricher Enricher
	weights  Weights
}

// NewParser creates a parser over the given vocabulary. A nil enricher
// means the primary path only.
func NewParser(vocab *Vocabulary, enricher Enricher) *Parser {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Parser{vocab: vocab, enricher: enricher, weights: DefaultWeights()}
}

// SetVocabulary atomically replaces the synonym tables (hot reload).
func (p *Parser) SetVocabulary(v *Vocabulary) {
	p.mu.Lock()
	p.vocab = v
	p.mu.Unlock()
	logging.Intent("vocabulary reloaded: %d actions, %d targets", len(v.Actions), len(v.Targets))
}

// Vocabulary returns the current synonym tables.
func (p *Parser) Vocabulary() *Vocabulary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vocab
}

// Normalize lowercases, strips punctuation, and collapses whitespace.
func Normalize(utterance string) string {
	var b strings.Builder
	b.Grow(len(utterance))
	for _, r := range strings.ToLower(utterance) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Parse runs the primary (synonym-table) path only. Deterministic.
func (p *Parser) Parse(utterance string) Command {
	p.mu.RLock()
	vocab := p.vocab
	weights := p.weights
	p.mu.RUnlock()

	cmd := parsePrimary(vocab, utterance)
	return finalize(cmd, weights, agreementNone)
}

// ParseContext runs the primary path and, when the analyzer is
// reachable, the enrichment path. Enrichment failure is silent: the
// primary result stands and the degradation is logged for
// observability only.
func (p *Parser) ParseContext(ctx context.Context, utterance string) Command {
	p.mu.RLock()
	vocab := p.vocab
	enricher := p.enricher
	weights := p.weights
	p.mu.RUnlock()

	cmd := parsePrimary(vocab, utterance)

	if enricher == nil || !enricher.Available(ctx) {
		return finalize(cmd, weights, agreementNone)
	}

	enr, err := enricher.Enrich(ctx, Normalize(utterance))
	if err != nil {
		logging.NLPDebug("enrichment degraded to primary path: %v", err)
		return finalize(cmd, weights, agreementNone)
	}
	merged, agreement := mergeEnrichment(cmd, enr)
	return finalize(merged, weights, agreement)
}

// ParseBatch parses several utterances concurrently. Results keep the
// input order.
func (p *Parser) ParseBatch(ctx context.Context, utterances []string) ([]Command, error) {
	results := make([]Command, len(utterances))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, u := range utterances {
		i, u := i, u
		g.Go(func() error {
			results[i] = p.ParseContext(ctx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type agreementKind int

const (
	agreementNone agreementKind = iota
	agreementMatched
	agreementSoleSource
)

// parsePrimary scans normalized tokens against the synonym tables.
// Slot rules: first action match wins (phrases before single tokens),
// first target match outside the action span wins, first direction and
// first number anywhere win.
func parsePrimary(v *Vocabulary, utterance string) Command {
	norm := Normalize(utterance)
	cmd := Command{RawText: utterance}
	if norm == "" {
		return cmd
	}
	tokens := strings.Fields(norm)

	actionStart, actionEnd := -1, -1 // token span claimed by the action
	for i := 0; i < len(tokens) && cmd.Action == ""; i++ {
		// Multi-word surface forms first, longest first.
		for _, ph := range v.actionPhrases {
			if i+ph.words > len(tokens) {
				continue
			}
			if strings.Join(tokens[i:i+ph.words], " ") == ph.surface {
				cmd.Action = ph.canonical
				actionStart, actionEnd = i, i+ph.words
				break
			}
		}
		if cmd.Action != "" {
			break
		}
		if canonical, ok := v.actionIndex[tokens[i]]; ok {
			cmd.Action = canonical
			actionStart, actionEnd = i, i+1
		}
	}

	used := make([]bool, len(tokens))
	for i := actionStart; i >= 0 && i < actionEnd; i++ {
		used[i] = true
	}

	for i, tok := range tokens {
		if cmd.Target == "" && !used[i] {
			if canonical, ok := v.targetIndex[tok]; ok {
				cmd.Target = canonical
				used[i] = true
				continue
			}
		}
		if cmd.Direction == "" {
			if canonical, ok := v.dirIndex[tok]; ok {
				cmd.Direction = canonical
				used[i] = true
				continue
			}
		}
		if cmd.Number == nil {
			if n, ok := parseNumberToken(tok); ok {
				cmd.Number = &n
				used[i] = true
			}
		}
	}

	// Leftover non-filler tokens describe the element ("click the login
	// button" -> "login"). Informational only: never drives dispatch.
	var desc []string
	for i, tok := range tokens {
		if !used[i] && !fillerWords[tok] {
			desc = append(desc, tok)
		}
	}
	cmd.Descriptor = strings.Join(desc, " ")

	switch cmd.Action {
	case ActionConfirm:
		cmd.Confirmation = "yes"
	case ActionDeny:
		cmd.Confirmation = "no"
	}
	return cmd
}

// mergeEnrichment prefers analyzer slots only when extraction was
// unambiguous (at most one candidate root). Adjectives are copied into
// the descriptor and never influence action/target resolution.
func mergeEnrichment(primary Command, enr Enrichment) (Command, agreementKind) {
	merged := primary
	agreement := agreementNone

	if enr.Command.HasAction() && enr.VerbCandidates <= 1 {
		switch {
		case !primary.HasAction():
			merged.Action = enr.Command.Action
			agreement = agreementSoleSource
		case primary.Action == enr.Command.Action:
			agreement = agreementMatched
		default:
			merged.Action = enr.Command.Action
			agreement = agreementNone
		}
	} else if enr.Command.HasAction() && primary.HasAction() && primary.Action == enr.Command.Action {
		agreement = agreementMatched
	}

	if enr.Command.HasTarget() && enr.NounCandidates <= 1 {
		merged.Target = enr.Command.Target
	}
	if enr.Command.Descriptor != "" {
		merged.Descriptor = enr.Command.Descriptor
	}
	if merged.Direction == "" {
		merged.Direction = enr.Command.Direction
	}
	if merged.Number == nil {
		merged.Number = enr.Command.Number
	}
	return merged, agreement
}

// finalize applies the success invariant and the additive confidence
// policy. No verb means no actionable command: confidence is zeroed
// even when other slots resolved.
func finalize(cmd Command, w Weights, agreement agreementKind) Command {
	if !cmd.HasAction() {
		cmd.Success = false
		cmd.Confidence = 0
		return cmd
	}
	conf := w.Action
	if cmd.HasTarget() {
		conf += w.Target
	}
	if cmd.Direction != "" || cmd.HasNumber() {
		conf += w.Modifier
	}
	if agreement != agreementNone {
		conf += w.Agreement
	}
	if conf > 1.0 {
		conf = 1.0
	}
	cmd.Confidence = conf
	cmd.Success = true
	return cmd
}
