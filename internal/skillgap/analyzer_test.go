package skillgap

import (
	"testing"

	"github.com/jmendel/mentormatch/internal/matching"
)

func expert() *matching.ProviderProfile {
	return &matching.ProviderProfile{
		ID: "p1",
		Skills: []matching.SkillLevel{
			{Name: "Go", Level: 9},
			{Name: "System Design", Level: 5},
		},
		Expertise: []string{"Kubernetes"},
	}
}

func TestAnalyzeFullCoverage(t *testing.T) {
	needs := []matching.SkillNeed{{Skill: "Go", CurrentLevel: 3, TargetLevel: 7, Importance: 1}}

	a := Analyze(needs, expert())

	if a.OverallScore != 100 {
		t.Fatalf("OverallScore = %d, want 100", a.OverallScore)
	}
	g := a.Gaps[0]
	if g.Gap != 4 || g.ProviderLevel != 9 || g.FillPercent != 100 {
		t.Errorf("gap = %+v", g)
	}
	if g.ProviderCanFill != 4 {
		t.Errorf("ProviderCanFill = %d, want the full gap of 4", g.ProviderCanFill)
	}
	if a.Plan.TotalSessions != 4 {
		t.Errorf("TotalSessions = %d, want 4 (one per level)", a.Plan.TotalSessions)
	}
	if a.Plan.Timeframe != "4 weeks" {
		t.Errorf("Timeframe = %q, want %q", a.Plan.Timeframe, "4 weeks")
	}
	item := a.Plan.Items[0]
	if item.ToLevel != 7 || item.TargetLevel != 7 || item.ProviderLevel != 9 {
		t.Errorf("plan item = %+v, want ToLevel 7, TargetLevel 7, ProviderLevel 9", item)
	}
}

func TestAnalyzePartialCoverage(t *testing.T) {
	// Provider sits at level 5; seeker wants 3 -> 9, so only 2 of 6 levels fill.
	needs := []matching.SkillNeed{{Skill: "System Design", CurrentLevel: 3, TargetLevel: 9, Importance: 1}}

	a := Analyze(needs, expert())

	g := a.Gaps[0]
	if g.FillPercent != 33 {
		t.Errorf("FillPercent = %d, want 33", g.FillPercent)
	}
	if g.ProviderCanFill != 2 {
		t.Errorf("ProviderCanFill = %d, want 2", g.ProviderCanFill)
	}
	if a.Plan.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", a.Plan.TotalSessions)
	}
	item := a.Plan.Items[0]
	if item.ToLevel != 5 {
		t.Errorf("ToLevel = %d, want provider ceiling 5", item.ToLevel)
	}
	if item.TargetLevel != 9 || item.ProviderLevel != 5 {
		t.Errorf("plan item = %+v, want seeker target 9 and provider level 5", item)
	}
}

func TestAnalyzeAbsentSkillFillsNothing(t *testing.T) {
	needs := []matching.SkillNeed{{Skill: "watercolor painting", CurrentLevel: 1, TargetLevel: 5, Importance: 1}}

	a := Analyze(needs, expert())

	if a.OverallScore != 0 {
		t.Errorf("OverallScore = %d, want 0", a.OverallScore)
	}
	if a.Gaps[0].FillPercent != 0 {
		t.Errorf("FillPercent = %d, want 0", a.Gaps[0].FillPercent)
	}
	if len(a.Plan.Items) != 0 || a.Plan.Timeframe != "" {
		t.Errorf("plan should be empty, got %+v", a.Plan)
	}
}

func TestAnalyzeZeroGapAlreadySatisfied(t *testing.T) {
	needs := []matching.SkillNeed{{Skill: "watercolor painting", CurrentLevel: 5, TargetLevel: 5, Importance: 1}}

	a := Analyze(needs, expert())

	if a.Gaps[0].FillPercent != 100 {
		t.Errorf("FillPercent = %d, want 100 for an already-met target", a.Gaps[0].FillPercent)
	}
	if a.Gaps[0].ProviderCanFill != 0 {
		t.Errorf("ProviderCanFill = %d, want 0 when there is no gap to fill", a.Gaps[0].ProviderCanFill)
	}
	if a.OverallScore != 100 {
		t.Errorf("OverallScore = %d, want 100", a.OverallScore)
	}
	if len(a.Plan.Items) != 0 {
		t.Errorf("no sessions needed for a zero gap, got %+v", a.Plan.Items)
	}
}

func TestAnalyzeImportanceWeighting(t *testing.T) {
	needs := []matching.SkillNeed{
		{Skill: "Go", CurrentLevel: 3, TargetLevel: 7, Importance: 3},           // 100% fill
		{Skill: "watercolor painting", CurrentLevel: 1, TargetLevel: 5, Importance: 1}, // 0% fill
	}

	a := Analyze(needs, expert())

	// (100*3 + 0*1) / 4 = 75.
	if a.OverallScore != 75 {
		t.Errorf("OverallScore = %d, want 75", a.OverallScore)
	}
}

func TestAnalyzeDefaultsMissingImportance(t *testing.T) {
	needs := []matching.SkillNeed{
		{Skill: "Go", CurrentLevel: 3, TargetLevel: 7},
		{Skill: "watercolor painting", CurrentLevel: 1, TargetLevel: 5},
	}

	a := Analyze(needs, expert())

	if a.OverallScore != 50 {
		t.Errorf("OverallScore = %d, want 50 with equal default weights", a.OverallScore)
	}
}

func TestAnalyzeExpertiseFallbackLevel(t *testing.T) {
	needs := []matching.SkillNeed{{Skill: "kubernetes", CurrentLevel: 2, TargetLevel: 6, Importance: 1}}

	a := Analyze(needs, expert())

	if a.Gaps[0].ProviderLevel != 7 {
		t.Errorf("ProviderLevel = %d, want expertise fallback 7", a.Gaps[0].ProviderLevel)
	}
	if a.Gaps[0].FillPercent != 100 {
		t.Errorf("FillPercent = %d, want 100", a.Gaps[0].FillPercent)
	}
}

func TestAnalyzeNoNeeds(t *testing.T) {
	a := Analyze(nil, expert())

	if a.OverallScore != 0 || len(a.Gaps) != 0 || len(a.Plan.Items) != 0 {
		t.Errorf("empty needs should produce an empty analysis, got %+v", a)
	}
}

func TestProviderSkillLevelPicksHighestMatch(t *testing.T) {
	p := &matching.ProviderProfile{
		Skills: []matching.SkillLevel{
			{Name: "Go", Level: 4},
			{Name: "Golang tooling", Level: 8},
		},
	}
	if got := providerSkillLevel(p, "go"); got != 8 {
		t.Errorf("providerSkillLevel = %d, want 8", got)
	}
}
