package insight

import (
	"testing"
)

func identicalTraits() map[string]string {
	return map[string]string{
		DimCommunication:  "frequent",
		DimFeedback:       "constructive",
		DimWorkPace:       "steady",
		DimProblemSolving: "methodical",
		DimConflict:       "mediating",
	}
}

func TestAnalyzeIdenticalTraits(t *testing.T) {
	traits := identicalTraits()
	report := Analyze(traits, traits)

	if report.OverallScore != exactScore {
		t.Fatalf("OverallScore = %d, want %d", report.OverallScore, exactScore)
	}
	if len(report.Strengths) != len(dimensions) {
		t.Errorf("got %d strengths, want %d", len(report.Strengths), len(dimensions))
	}
	if len(report.Challenges) != 0 {
		t.Errorf("got challenges %v, want none", report.Challenges)
	}
	if report.OverallDescription != "excellent personality fit" {
		t.Errorf("OverallDescription = %q", report.OverallDescription)
	}
}

func TestAnalyzePairTableIsSymmetric(t *testing.T) {
	seeker := map[string]string{DimFeedback: "blunt"}
	provider := map[string]string{DimFeedback: "gentle"}

	a := Analyze(seeker, provider)
	b := Analyze(provider, seeker)

	if a.Factors[DimFeedback].Score != b.Factors[DimFeedback].Score {
		t.Errorf("asymmetric scores: %d vs %d", a.Factors[DimFeedback].Score, b.Factors[DimFeedback].Score)
	}
	if a.Factors[DimFeedback].Score != 45 {
		t.Errorf("blunt/gentle = %d, want 45", a.Factors[DimFeedback].Score)
	}
}

func TestAnalyzeMissingValuesAreNeutral(t *testing.T) {
	report := Analyze(map[string]string{}, map[string]string{})

	if report.OverallScore != unknownScore {
		t.Fatalf("OverallScore = %d, want %d for all-unknown traits", report.OverallScore, unknownScore)
	}
	for dim, f := range report.Factors {
		if f.Score != unknownScore {
			t.Errorf("Factors[%s].Score = %d, want %d", dim, f.Score, unknownScore)
		}
	}
	// 55 sits below the challenge threshold everywhere.
	if len(report.Challenges) != len(dimensions) {
		t.Errorf("got %d challenges, want %d", len(report.Challenges), len(dimensions))
	}
}

func TestAnalyzeThresholdBands(t *testing.T) {
	cases := []struct {
		name        string
		seekerVal   string
		providerVal string
		wantScore   int
		strength    bool
		challenge   bool
	}{
		{"exact is a strength", "fast", "fast", exactScore, true, false},
		{"80 is a strength", "fast", "flexible", 80, true, false},
		{"76 is neither", "steady", "flexible", 76, false, false},
		{"68 is a challenge", "fast", "steady", 68, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := Analyze(
				map[string]string{DimWorkPace: tc.seekerVal},
				map[string]string{DimWorkPace: tc.providerVal},
			)
			f := report.Factors[DimWorkPace]
			if f.Score != tc.wantScore {
				t.Fatalf("score = %d, want %d", f.Score, tc.wantScore)
			}
			if got := containsLabel(report.Strengths, "work pace"); got != tc.strength {
				t.Errorf("strength listed = %v, want %v", got, tc.strength)
			}
			if got := containsLabel(report.Challenges, "work pace"); got != tc.challenge {
				t.Errorf("challenge listed = %v, want %v", got, tc.challenge)
			}
		})
	}
}

func TestAnalyzeHighlightsCarryDescriptions(t *testing.T) {
	report := Analyze(
		map[string]string{DimWorkPace: "fast", DimFeedback: "blunt"},
		map[string]string{DimWorkPace: "fast", DimFeedback: "gentle"},
	)

	var strength, challenge *Highlight
	for i := range report.Strengths {
		if report.Strengths[i].Area == "work pace" {
			strength = &report.Strengths[i]
		}
	}
	for i := range report.Challenges {
		if report.Challenges[i].Area == "feedback style" {
			challenge = &report.Challenges[i]
		}
	}

	if strength == nil {
		t.Fatal("work pace should be listed as a strength")
	}
	if want := report.Factors[DimWorkPace].Description; strength.Description != want {
		t.Errorf("strength description = %q, want factor description %q", strength.Description, want)
	}
	if challenge == nil {
		t.Fatal("feedback style should be listed as a challenge")
	}
	if want := report.Factors[DimFeedback].Description; challenge.Description != want {
		t.Errorf("challenge description = %q, want factor description %q", challenge.Description, want)
	}
}

func TestAnalyzeUnlistedPairGetsDefault(t *testing.T) {
	report := Analyze(
		map[string]string{DimWorkPace: "sprint-based"},
		map[string]string{DimWorkPace: "steady"},
	)
	if got := report.Factors[DimWorkPace].Score; got != defaultScore {
		t.Errorf("score = %d, want default %d for an unlisted pair", got, defaultScore)
	}
}

func containsLabel(list []Highlight, area string) bool {
	for _, h := range list {
		if h.Area == area {
			return true
		}
	}
	return false
}
