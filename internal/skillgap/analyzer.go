// Package skillgap measures how far a seeker's skills sit from their targets
// and how much of that distance a specific provider can close.
package skillgap

import (
	"fmt"
	"math"
	"strings"

	"github.com/jmendel/mentormatch/internal/matching"
)

// Gap is the analysis of a single skill need against one provider.
// ProviderCanFill is the number of gap levels the provider covers, never more
// than Gap.
type Gap struct {
	Skill           string  `json:"skill"`
	CurrentLevel    int     `json:"current_level"`
	TargetLevel     int     `json:"target_level"`
	Gap             int     `json:"gap"`
	ProviderLevel   int     `json:"provider_level"`
	ProviderCanFill int     `json:"provider_can_fill"`
	FillPercent     int     `json:"fill_percent"`
	Importance      float64 `json:"importance"`
}

// PlanItem is one line of the development plan. ToLevel is the level the
// provider can actually carry the seeker to, which sits at or below the
// seeker's TargetLevel.
type PlanItem struct {
	Skill         string `json:"skill"`
	FromLevel     int    `json:"from_level"`
	ToLevel       int    `json:"to_level"`
	TargetLevel   int    `json:"target_level"`
	ProviderLevel int    `json:"provider_level"`
	Sessions      int    `json:"sessions"`
	Description   string `json:"description"`
}

// Plan is the session-by-session development plan for a pair.
type Plan struct {
	Items         []PlanItem `json:"items,omitempty"`
	TotalSessions int        `json:"total_sessions"`
	Timeframe     string     `json:"timeframe,omitempty"`
}

// Analysis is the full skill-gap report for a seeker/provider pair.
type Analysis struct {
	OverallScore int   `json:"overall_score"`
	Gaps         []Gap `json:"gaps,omitempty"`
	Plan         Plan  `json:"plan"`
}

// Analyze evaluates every skill need against the provider's skill levels.
//
// For each need: gap = target - current (floored at zero); the provider can
// fill at most (provider level - current) of it; fill percent is the filled
// share of the gap, with a zero gap counting as already satisfied. The overall
// score is the importance-weighted average of fill percents. The plan budgets
// one session per fillable level, one session per week.
func Analyze(needs []matching.SkillNeed, provider *matching.ProviderProfile) *Analysis {
	if len(needs) == 0 {
		return &Analysis{}
	}

	gaps := make([]Gap, 0, len(needs))
	var items []PlanItem
	totalSessions := 0
	var weightedSum, weightTotal float64

	for _, need := range needs {
		g := analyzeNeed(need, provider)
		gaps = append(gaps, g)

		weight := need.Importance
		if weight <= 0 {
			weight = 1
		}
		weightedSum += float64(g.FillPercent) * weight
		weightTotal += weight

		fill := g.ProviderCanFill
		if fill <= 0 {
			continue
		}
		totalSessions += fill
		items = append(items, PlanItem{
			Skill:         g.Skill,
			FromLevel:     g.CurrentLevel,
			ToLevel:       g.CurrentLevel + fill,
			TargetLevel:   g.TargetLevel,
			ProviderLevel: g.ProviderLevel,
			Sessions:      fill,
			Description:   fmt.Sprintf("develop %s from level %d to %d", g.Skill, g.CurrentLevel, g.CurrentLevel+fill),
		})
	}

	overall := 0
	if weightTotal > 0 {
		overall = int(math.Round(weightedSum / weightTotal))
	}

	return &Analysis{
		OverallScore: overall,
		Gaps:         gaps,
		Plan: Plan{
			Items:         items,
			TotalSessions: totalSessions,
			Timeframe:     timeframe(totalSessions),
		},
	}
}

func analyzeNeed(need matching.SkillNeed, provider *matching.ProviderProfile) Gap {
	gap := need.TargetLevel - need.CurrentLevel
	if gap < 0 {
		gap = 0
	}

	providerLevel := providerSkillLevel(provider, need.Skill)

	fill := providerLevel - need.CurrentLevel
	if fill > gap {
		fill = gap
	}
	if fill < 0 {
		fill = 0
	}

	fillPercent := 100 // a zero gap is already satisfied
	if gap > 0 {
		fillPercent = int(math.Round(100 * float64(fill) / float64(gap)))
	}

	return Gap{
		Skill:           need.Skill,
		CurrentLevel:    need.CurrentLevel,
		TargetLevel:     need.TargetLevel,
		Gap:             gap,
		ProviderLevel:   providerLevel,
		ProviderCanFill: fill,
		FillPercent:     fillPercent,
		Importance:      need.Importance,
	}
}

// providerSkillLevel finds the provider's level for a skill using the same
// loose matching as the scorer: case-insensitive containment in either
// direction. When several skills match, the highest level wins. Expertise
// entries without explicit levels count as a solid mid-range 7.
func providerSkillLevel(provider *matching.ProviderProfile, skill string) int {
	want := strings.ToLower(strings.TrimSpace(skill))
	if want == "" {
		return 0
	}

	best := 0
	for _, s := range provider.Skills {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			continue
		}
		if (strings.Contains(name, want) || strings.Contains(want, name)) && s.Level > best {
			best = s.Level
		}
	}
	if best > 0 {
		return best
	}

	for _, e := range provider.Expertise {
		area := strings.ToLower(strings.TrimSpace(e))
		if area == "" {
			continue
		}
		if strings.Contains(area, want) || strings.Contains(want, area) {
			return 7
		}
	}
	return 0
}

func timeframe(sessions int) string {
	switch {
	case sessions <= 0:
		return ""
	case sessions == 1:
		return "1 week"
	default:
		return fmt.Sprintf("%d weeks", sessions)
	}
}
