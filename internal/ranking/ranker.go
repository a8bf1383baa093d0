package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmendel/mentormatch/internal/matching"
)

// ErrModelUnavailable wraps every failure on the model path: network errors,
// timeouts and malformed or rule-breaking responses alike. Callers treat it
// as a signal to fall back, not as a user-facing error.
var ErrModelUnavailable = errors.New("ranking model unavailable")

const (
	defaultTimeout = 8 * time.Second
	minModelScore  = 50
	maxModelScore  = 100
	maxReasons     = 3
)

// ContentGenerator produces a text completion for a prompt.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// ModelRanker ranks candidates with a generative model. Responses are
// validated strictly: any deviation from the expected schema fails the whole
// call rather than salvaging partial output.
type ModelRanker struct {
	gen     ContentGenerator
	timeout time.Duration
	logger  *slog.Logger
}

// NewModelRanker creates a ModelRanker. If timeout is <= 0 it defaults to 8s.
func NewModelRanker(gen ContentGenerator, timeout time.Duration) *ModelRanker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ModelRanker{
		gen:     gen,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// Rank asks the model to order the candidate pool for the given preferences.
// The returned results carry scores and reasons but no ranks; rank assignment
// belongs to the orchestrator.
func (r *ModelRanker) Rank(ctx context.Context, prefs *matching.SeekerPreferences, providers []matching.ProviderProfile) ([]matching.MatchResult, error) {
	prompt, err := buildPrompt(prefs, providers)
	if err != nil {
		return nil, fmt.Errorf("%w: building prompt: %v", ErrModelUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	raw, err := r.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	r.logger.Debug("model ranking response received", "elapsed", time.Since(start), "bytes", len(raw))

	results, err := parseResults(raw, providers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return results, nil
}

type modelMatch struct {
	ProviderID   string   `json:"provider_id"`
	MatchScore   int      `json:"match_score"`
	MatchReasons []string `json:"match_reasons"`
}

// parseResults decodes and validates the model output. Markdown code fences
// are tolerated because models add them despite instructions; everything else
// must match the schema exactly.
func parseResults(raw string, providers []matching.ProviderProfile) ([]matching.MatchResult, error) {
	cleaned := stripCodeFences(raw)

	var matches []modelMatch
	if err := json.Unmarshal([]byte(cleaned), &matches); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p.ID] = true
	}

	seen := make(map[string]bool, len(matches))
	results := make([]matching.MatchResult, 0, len(matches))
	prevScore := maxModelScore
	for i, m := range matches {
		if !known[m.ProviderID] {
			return nil, fmt.Errorf("unknown provider_id %q at index %d", m.ProviderID, i)
		}
		if seen[m.ProviderID] {
			return nil, fmt.Errorf("duplicate provider_id %q", m.ProviderID)
		}
		seen[m.ProviderID] = true

		if m.MatchScore < minModelScore || m.MatchScore > maxModelScore {
			return nil, fmt.Errorf("score %d for %q outside [%d, %d]", m.MatchScore, m.ProviderID, minModelScore, maxModelScore)
		}
		if m.MatchScore > prevScore {
			return nil, fmt.Errorf("scores not sorted descending at index %d", i)
		}
		prevScore = m.MatchScore

		if len(m.MatchReasons) > maxReasons {
			return nil, fmt.Errorf("%d reasons for %q, at most %d allowed", len(m.MatchReasons), m.ProviderID, maxReasons)
		}

		results = append(results, matching.MatchResult{
			ProviderID: m.ProviderID,
			Score:      m.MatchScore,
			Reasons:    m.MatchReasons,
		})
	}
	return results, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
