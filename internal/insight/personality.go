// Package insight produces trait-level compatibility reports for a
// seeker/provider pair. Reports are derived on demand and never persisted.
package insight

import (
	"fmt"
	"math"
	"sort"
)

// Trait dimensions compared between seeker and provider. Both sides declare a
// value per dimension during intake; unknown or missing values degrade to a
// neutral score instead of failing.
const (
	DimCommunication  = "communication_preference"
	DimFeedback       = "feedback_style"
	DimWorkPace       = "work_pace"
	DimProblemSolving = "problem_solving"
	DimConflict       = "conflict_resolution"
)

const (
	exactScore   = 95
	defaultScore = 60
	unknownScore = 55

	strengthThreshold  = 80
	challengeThreshold = 70
)

var dimensions = []string{DimCommunication, DimFeedback, DimWorkPace, DimProblemSolving, DimConflict}

var dimensionLabels = map[string]string{
	DimCommunication:  "communication preference",
	DimFeedback:       "feedback style",
	DimWorkPace:       "work pace",
	DimProblemSolving: "problem-solving style",
	DimConflict:       "conflict resolution",
}

// pairScores holds partial scores for known non-identical value pairs, keyed
// per dimension. Lookups are symmetric; pairs absent here score defaultScore.
var pairScores = map[string]map[string]map[string]int{
	DimCommunication: {
		"frequent":   {"structured": 78, "asynchronous": 58},
		"structured": {"asynchronous": 72},
	},
	DimFeedback: {
		"blunt":  {"constructive": 75, "gentle": 45},
		"gentle": {"constructive": 82},
	},
	DimWorkPace: {
		"fast":   {"steady": 68, "flexible": 80},
		"steady": {"flexible": 76},
	},
	DimProblemSolving: {
		"intuitive":  {"methodical": 62, "experimental": 84},
		"methodical": {"experimental": 66},
	},
	DimConflict: {
		"head-on":       {"mediating": 72, "accommodating": 48},
		"accommodating": {"mediating": 80},
	},
}

// FactorInsight is the per-dimension score with a short explanation.
type FactorInsight struct {
	Score       int    `json:"score"`
	Description string `json:"description"`
}

// Highlight calls out one dimension as a strength or a challenge, keeping the
// explanation alongside the area label.
type Highlight struct {
	Area        string `json:"area"`
	Description string `json:"description"`
}

// Report is a full trait-compatibility breakdown for one pair.
type Report struct {
	OverallScore       int                      `json:"overall_score"`
	OverallDescription string                   `json:"overall_description"`
	Strengths          []Highlight              `json:"strengths,omitempty"`
	Challenges         []Highlight              `json:"challenges,omitempty"`
	Factors            map[string]FactorInsight `json:"factors"`
}

// Analyze compares seeker and provider traits across all dimensions.
// Dimensions scoring >= 80 are strengths, < 70 are challenges; the 70-79 band
// lands in neither list. The overall score is the mean across dimensions.
func Analyze(seeker, provider map[string]string) *Report {
	factors := make(map[string]FactorInsight, len(dimensions))
	var strengths, challenges []Highlight
	sum := 0

	for _, dim := range dimensions {
		score, desc := dimensionScore(dim, seeker[dim], provider[dim])
		factors[dim] = FactorInsight{Score: score, Description: desc}
		sum += score

		h := Highlight{Area: dimensionLabels[dim], Description: desc}
		switch {
		case score >= strengthThreshold:
			strengths = append(strengths, h)
		case score < challengeThreshold:
			challenges = append(challenges, h)
		}
	}

	overall := int(math.Round(float64(sum) / float64(len(dimensions))))
	sortHighlights(strengths)
	sortHighlights(challenges)

	return &Report{
		OverallScore:       overall,
		OverallDescription: overallDescription(overall),
		Strengths:          strengths,
		Challenges:         challenges,
		Factors:            factors,
	}
}

func sortHighlights(hs []Highlight) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Area < hs[j].Area })
}

func dimensionScore(dim, seekerVal, providerVal string) (int, string) {
	label := dimensionLabels[dim]
	if seekerVal == "" || providerVal == "" {
		return unknownScore, fmt.Sprintf("not enough information on %s", label)
	}
	if seekerVal == providerVal {
		return exactScore, fmt.Sprintf("aligned on %s (%s)", label, seekerVal)
	}

	score := defaultScore
	if v, ok := pairScores[dim][seekerVal][providerVal]; ok {
		score = v
	} else if v, ok := pairScores[dim][providerVal][seekerVal]; ok {
		score = v
	}
	return score, fmt.Sprintf("%s differs: %s vs %s", label, seekerVal, providerVal)
}

func overallDescription(score int) string {
	switch {
	case score >= 85:
		return "excellent personality fit"
	case score >= 70:
		return "good personality fit"
	case score >= 55:
		return "workable fit with some friction points"
	default:
		return "limited personality fit"
	}
}
