package ranking

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmendel/mentormatch/internal/matching"
)

const promptInstructions = `You are a mentor-matching assistant. Given a seeker's preferences and a
list of candidate mentors, rank the mentors by fit.

Respond with ONLY a JSON array, no prose. Each element:
  {"provider_id": "<id from the candidate list>", "match_score": <integer 50-100>, "match_reasons": ["<short reason>", ...]}

Rules:
- Include only mentors with a score of 50 or higher; omit poor fits entirely.
- At most 3 reasons per mentor, each under 80 characters.
- Sort the array by match_score descending.
- Never invent provider IDs and never repeat one.`

// candidateSummary is the reduced provider view sent to the model. Pricing,
// ratings and other private fields are deliberately excluded.
type candidateSummary struct {
	ProviderID         string   `json:"provider_id"`
	Expertise          []string `json:"expertise,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	CommunicationStyle string   `json:"communication_style,omitempty"`
	ApproachStyle      string   `json:"approach_style,omitempty"`
	YearsExperience    int      `json:"years_experience"`
}

type promptPreferences struct {
	CommunicationStyle string   `json:"communication_style,omitempty"`
	FeedbackStyle      string   `json:"feedback_style,omitempty"`
	Approach           string   `json:"approach,omitempty"`
	SkillsToImprove    []string `json:"skills_to_improve,omitempty"`
	IndustryInterests  []string `json:"industry_interests,omitempty"`
}

func buildPrompt(prefs *matching.SeekerPreferences, providers []matching.ProviderProfile) (string, error) {
	prefsJSON, err := json.Marshal(promptPreferences{
		CommunicationStyle: prefs.CommunicationStyle,
		FeedbackStyle:      prefs.FeedbackStyle,
		Approach:           prefs.Approach,
		SkillsToImprove:    prefs.SkillsToImprove(),
		IndustryInterests:  prefs.IndustryInterests,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling preferences: %w", err)
	}

	summaries := make([]candidateSummary, 0, len(providers))
	for _, p := range providers {
		skills := make([]string, 0, len(p.Skills))
		for _, s := range p.Skills {
			skills = append(skills, s.Name)
		}
		summaries = append(summaries, candidateSummary{
			ProviderID:         p.ID,
			Expertise:          p.Expertise,
			Skills:             skills,
			CommunicationStyle: p.CommunicationStyle,
			ApproachStyle:      p.ApproachStyle,
			YearsExperience:    p.YearsExperience,
		})
	}
	candidatesJSON, err := json.Marshal(summaries)
	if err != nil {
		return "", fmt.Errorf("marshalling candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\nSeeker preferences:\n")
	b.Write(prefsJSON)
	b.WriteString("\n\nCandidate mentors:\n")
	b.Write(candidatesJSON)
	b.WriteString("\n")
	return b.String(), nil
}
