package matching

import (
	"math"
	"strings"
)

const maxReasons = 3

// Partial-credit tables for non-identical style pairs. Exact matches score
// the full factor weight (33) and never consult these.
var commPartial = map[string]map[string]int{
	StyleDirect:        {StyleSupportive: 15, StyleAnalytical: 25, StyleCollaborative: 18},
	StyleSupportive:    {StyleDirect: 15, StyleAnalytical: 12, StyleCollaborative: 25},
	StyleAnalytical:    {StyleDirect: 25, StyleSupportive: 12, StyleCollaborative: 15},
	StyleCollaborative: {StyleDirect: 18, StyleSupportive: 25, StyleAnalytical: 15},
}

var approachPartial = map[string]map[string]int{
	ApproachCoaching:    {ApproachAdvisory: 20, ApproachSponsorship: 12, ApproachRoleModel: 18},
	ApproachAdvisory:    {ApproachCoaching: 20, ApproachSponsorship: 15, ApproachRoleModel: 12},
	ApproachSponsorship: {ApproachCoaching: 12, ApproachAdvisory: 15, ApproachRoleModel: 10},
	ApproachRoleModel:   {ApproachCoaching: 18, ApproachAdvisory: 12, ApproachSponsorship: 10},
}

// Score computes the deterministic 0-100 compatibility score between a seeker
// and a provider, with up to three human-readable reasons. Three factors carry
// equal 33-point weight (communication style, mentorship approach, expertise
// overlap) plus a 5-point veteran bonus; the total is clamped to 100.
func Score(prefs *SeekerPreferences, p *ProviderProfile) MatchResult {
	var total int
	var reasons []string

	comm := styleScore(commPartial, prefs.CommunicationStyle, p.CommunicationStyle)
	total += comm
	switch {
	case comm == 33:
		reasons = append(reasons, "matching communication style")
	case comm > 15:
		reasons = append(reasons, "compatible communication styles")
	}

	approach := styleScore(approachPartial, prefs.Approach, p.ApproachStyle)
	total += approach
	switch {
	case approach == 33:
		reasons = append(reasons, "matching mentorship approach")
	case approach > 15:
		reasons = append(reasons, "compatible mentorship approach")
	}

	expertise := expertiseScore(prefs, p)
	total += expertise
	switch {
	case expertise > 25:
		reasons = append(reasons, "strong expertise match")
	case expertise > 15:
		reasons = append(reasons, "some expertise match")
	}

	if p.YearsExperience >= 10 {
		total += 5
		reasons = append(reasons, "extensive industry experience")
	}

	if total > 100 {
		total = 100
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	return MatchResult{ProviderID: p.ID, Score: total, Reasons: reasons}
}

func styleScore(partial map[string]map[string]int, want, have string) int {
	if want == "" || have == "" {
		return 0
	}
	if want == have {
		return 33
	}
	return partial[want][have]
}

// expertiseScore blends skill-need coverage and industry overlap into a single
// factor capped at 33. Matching is loose by design: a need matches a provider
// area when either string contains the other, case-insensitively, so "go"
// matches "golang" and "Machine Learning" matches "machine learning ops".
func expertiseScore(prefs *SeekerPreferences, p *ProviderProfile) int {
	areas := providerAreas(p)

	skillRatio := overlapRatio(prefs.SkillsToImprove(), areas)
	industryRatio := overlapRatio(prefs.IndustryInterests, areas)

	score := int(math.Round(20*skillRatio + 13*industryRatio))
	if score > 33 {
		score = 33
	}
	return score
}

// providerAreas collects everything a provider claims competence in:
// expertise entries plus named skills.
func providerAreas(p *ProviderProfile) []string {
	areas := make([]string, 0, len(p.Expertise)+len(p.Skills))
	areas = append(areas, p.Expertise...)
	for _, s := range p.Skills {
		areas = append(areas, s.Name)
	}
	return areas
}

// overlapRatio returns the fraction of wants covered by at least one area.
// An empty wants list contributes nothing rather than a perfect score.
func overlapRatio(wants, areas []string) float64 {
	if len(wants) == 0 || len(areas) == 0 {
		return 0
	}
	matched := 0
	for _, w := range wants {
		if looseMatchAny(w, areas) {
			matched++
		}
	}
	return float64(matched) / float64(len(wants))
}

func looseMatchAny(want string, areas []string) bool {
	w := strings.ToLower(strings.TrimSpace(want))
	if w == "" {
		return false
	}
	for _, a := range areas {
		area := strings.ToLower(strings.TrimSpace(a))
		if area == "" {
			continue
		}
		if strings.Contains(area, w) || strings.Contains(w, area) {
			return true
		}
	}
	return false
}
