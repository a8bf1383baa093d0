package ranking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmendel/mentormatch/internal/matching"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return m.generateFn(ctx, prompt)
}

func testProviders() []matching.ProviderProfile {
	return []matching.ProviderProfile{
		{ID: "p1", Expertise: []string{"Go"}, CommunicationStyle: "direct", YearsExperience: 12, HourlyRate: 150, Rating: 4.9},
		{ID: "p2", Expertise: []string{"Rust"}, CommunicationStyle: "supportive", YearsExperience: 5, HourlyRate: 90},
	}
}

func testPrefs() *matching.SeekerPreferences {
	return &matching.SeekerPreferences{
		SeekerID:           "s1",
		CommunicationStyle: "direct",
		SkillNeeds:         []matching.SkillNeed{{Skill: "Go", CurrentLevel: 2, TargetLevel: 6}},
	}
}

func TestRankValidResponse(t *testing.T) {
	gen := &mockGenerator{generateFn: func(_ context.Context, _ string) (string, error) {
		return `[
			{"provider_id": "p1", "match_score": 88, "match_reasons": ["deep Go experience"]},
			{"provider_id": "p2", "match_score": 61, "match_reasons": []}
		]`, nil
	}}
	r := NewModelRanker(gen, time.Second)

	results, err := r.Rank(context.Background(), testPrefs(), testProviders())
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ProviderID != "p1" || results[0].Score != 88 {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[0].Rank != 0 {
		t.Errorf("ranker must not assign ranks, got %d", results[0].Rank)
	}
}

func TestRankStripsCodeFences(t *testing.T) {
	gen := &mockGenerator{generateFn: func(_ context.Context, _ string) (string, error) {
		return "```json\n[{\"provider_id\": \"p1\", \"match_score\": 75, \"match_reasons\": [\"fit\"]}]\n```", nil
	}}
	r := NewModelRanker(gen, time.Second)

	results, err := r.Rank(context.Background(), testPrefs(), testProviders())
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 1 || results[0].Score != 75 {
		t.Errorf("results = %+v", results)
	}
}

func TestRankRejectsInvalidResponses(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"not json", "the best mentor is p1"},
		{"unknown provider", `[{"provider_id": "ghost", "match_score": 80, "match_reasons": []}]`},
		{"duplicate provider", `[{"provider_id": "p1", "match_score": 80, "match_reasons": []}, {"provider_id": "p1", "match_score": 70, "match_reasons": []}]`},
		{"score too low", `[{"provider_id": "p1", "match_score": 49, "match_reasons": []}]`},
		{"score too high", `[{"provider_id": "p1", "match_score": 101, "match_reasons": []}]`},
		{"not sorted", `[{"provider_id": "p1", "match_score": 60, "match_reasons": []}, {"provider_id": "p2", "match_score": 90, "match_reasons": []}]`},
		{"too many reasons", `[{"provider_id": "p1", "match_score": 80, "match_reasons": ["a", "b", "c", "d"]}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &mockGenerator{generateFn: func(_ context.Context, _ string) (string, error) {
				return tc.response, nil
			}}
			r := NewModelRanker(gen, time.Second)

			_, err := r.Rank(context.Background(), testPrefs(), testProviders())
			if !errors.Is(err, ErrModelUnavailable) {
				t.Fatalf("err = %v, want ErrModelUnavailable", err)
			}
		})
	}
}

func TestRankGeneratorErrorWrapped(t *testing.T) {
	gen := &mockGenerator{generateFn: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("connection refused")
	}}
	r := NewModelRanker(gen, time.Second)

	_, err := r.Rank(context.Background(), testPrefs(), testProviders())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestRankHonorsTimeout(t *testing.T) {
	gen := &mockGenerator{generateFn: func(ctx context.Context, _ string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "[]", nil
		}
	}}
	r := NewModelRanker(gen, 50*time.Millisecond)

	start := time.Now()
	_, err := r.Rank(context.Background(), testPrefs(), testProviders())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestPromptExcludesPrivateFields(t *testing.T) {
	var captured string
	gen := &mockGenerator{generateFn: func(_ context.Context, prompt string) (string, error) {
		captured = prompt
		return "[]", nil
	}}
	r := NewModelRanker(gen, time.Second)

	if _, err := r.Rank(context.Background(), testPrefs(), testProviders()); err != nil {
		t.Fatalf("Rank: %v", err)
	}

	for _, forbidden := range []string{"hourly_rate", "150", "rating", "4.9"} {
		if strings.Contains(captured, forbidden) {
			t.Errorf("prompt leaks private field %q", forbidden)
		}
	}
	for _, required := range []string{"p1", "p2", "Go", "direct", "skills_to_improve"} {
		if !strings.Contains(captured, required) {
			t.Errorf("prompt missing %q", required)
		}
	}
}
