package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTopK        = 10
	defaultConcurrency = 4
)

// PreferenceSource loads a seeker's intake record. Implementations return
// ErrNoPreferences when the seeker has not completed intake.
type PreferenceSource interface {
	Preferences(seekerID string) (*SeekerPreferences, error)
}

// ProviderSource lists the candidate pool.
type ProviderSource interface {
	ListProviders() ([]ProviderProfile, error)
}

// MatchStore persists computed match sets.
type MatchStore interface {
	ReplaceMatches(seekerID string, results []MatchResult) error
}

// Ranker produces model-assisted rankings. An error from Rank means the model
// path is unavailable and the caller should fall back to deterministic scoring.
type Ranker interface {
	Rank(ctx context.Context, prefs *SeekerPreferences, providers []ProviderProfile) ([]MatchResult, error)
}

// Service orchestrates a full match computation: load preferences, rank the
// candidate pool, persist the winning set. It holds no per-seeker state; all
// inputs arrive via the injected sources.
type Service struct {
	prefs       PreferenceSource
	providers   ProviderSource
	store       MatchStore
	ranker      Ranker // nil disables the model path
	topK        int
	concurrency int
	logger      *slog.Logger
}

// NewService creates a Service. ranker may be nil, in which case every
// computation uses the deterministic scorer.
func NewService(prefs PreferenceSource, providers ProviderSource, store MatchStore, ranker Ranker) *Service {
	return &Service{
		prefs:       prefs,
		providers:   providers,
		store:       store,
		ranker:      ranker,
		topK:        defaultTopK,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
}

// SetTopK overrides the number of matches kept per seeker.
func (s *Service) SetTopK(k int) {
	if k > 0 {
		s.topK = k
	}
}

// ComputeMatches recomputes and persists the match set for one seeker,
// returning the persisted results in rank order.
//
// The model ranker is consulted first when configured; any failure there is
// logged and the deterministic scorer takes over, so a model outage degrades
// quality but never availability.
func (s *Service) ComputeMatches(ctx context.Context, seekerID string) ([]MatchResult, error) {
	prefs, err := s.prefs.Preferences(seekerID)
	if err != nil {
		return nil, err
	}

	providers, err := s.providers.ListProviders()
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	if len(providers) == 0 {
		return nil, ErrNoCandidates
	}

	var results []MatchResult
	if s.ranker != nil {
		results, err = s.ranker.Rank(ctx, prefs, providers)
		if err != nil {
			s.logger.Warn("model ranking unavailable, using deterministic scoring", "seeker_id", seekerID, "error", err)
			results = nil
		}
	}
	if results == nil {
		results, err = s.scoreAll(ctx, prefs, providers)
		if err != nil {
			return nil, err
		}
	}

	sortMatches(results)
	if len(results) > s.topK {
		results = results[:s.topK]
	}
	assignRanks(results)

	if err := s.store.ReplaceMatches(seekerID, results); err != nil {
		return nil, fmt.Errorf("persisting matches for %s: %w", seekerID, err)
	}
	return results, nil
}

// scoreAll runs the deterministic scorer across the pool with bounded
// concurrency. Each goroutine writes its own slot, so no locking is needed.
func (s *Service) scoreAll(ctx context.Context, prefs *SeekerPreferences, providers []ProviderProfile) ([]MatchResult, error) {
	results := make([]MatchResult, len(providers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range providers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Score(prefs, &providers[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}
	return results, nil
}

// sortMatches orders by score descending, then provider ID ascending so equal
// scores produce a stable, reproducible order.
func sortMatches(results []MatchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ProviderID < results[j].ProviderID
	})
}

// assignRanks numbers the sorted results 1..N. Ranks are unique even across
// equal scores; the provider-ID tie-break in sortMatches decides who comes
// first, so the numbering is reproducible.
func assignRanks(results []MatchResult) {
	for i := range results {
		results[i].Rank = i + 1
	}
}
