package matching

import "errors"

// ErrNoPreferences is returned when a seeker has not completed intake yet.
// It is distinct from a seeker who has preferences but zero matches.
var ErrNoPreferences = errors.New("seeker has no preferences")

// ErrNoCandidates is returned when the provider pool is empty.
var ErrNoCandidates = errors.New("no candidate providers")

// Communication styles a seeker or provider can declare.
const (
	StyleDirect        = "direct"
	StyleSupportive    = "supportive"
	StyleAnalytical    = "analytical"
	StyleCollaborative = "collaborative"
)

// Mentorship approach styles.
const (
	ApproachCoaching    = "coaching"
	ApproachAdvisory    = "advisory"
	ApproachSponsorship = "sponsorship"
	ApproachRoleModel   = "roleModel"
)

// SkillLevel is a named skill with a proficiency level on a 1-10 scale.
type SkillLevel struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// ProviderProfile describes an advisor available for matching.
type ProviderProfile struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Headline           string            `json:"headline,omitempty"`
	Expertise          []string          `json:"expertise,omitempty"`
	Skills             []SkillLevel      `json:"skills,omitempty"`
	YearsExperience    int               `json:"years_experience"`
	HourlyRate         float64           `json:"hourly_rate,omitempty"`
	CommunicationStyle string            `json:"communication_style"`
	ApproachStyle      string            `json:"approach_style"`
	Traits             map[string]string `json:"traits,omitempty"`
	Rating             float64           `json:"rating,omitempty"`
	ReviewCount        int               `json:"review_count,omitempty"`
}

// SkillNeed is one skill a seeker wants to develop.
type SkillNeed struct {
	Skill        string  `json:"skill"`
	CurrentLevel int     `json:"current_level"`
	TargetLevel  int     `json:"target_level"`
	Importance   float64 `json:"importance"`
}

// SeekerPreferences is the intake record a seeker fills out before matching.
type SeekerPreferences struct {
	SeekerID           string            `json:"seeker_id"`
	CommunicationStyle string            `json:"communication_style"`
	FeedbackStyle      string            `json:"feedback_style,omitempty"`
	Approach           string            `json:"approach"`
	GuidanceLevel      int               `json:"guidance_level,omitempty"`
	SkillNeeds         []SkillNeed       `json:"skill_needs,omitempty"`
	IndustryInterests  []string          `json:"industry_interests,omitempty"`
	Traits             map[string]string `json:"traits,omitempty"`
}

// SkillsToImprove returns the skill names from SkillNeeds, in declaration order.
func (p *SeekerPreferences) SkillsToImprove() []string {
	if len(p.SkillNeeds) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.SkillNeeds))
	for _, n := range p.SkillNeeds {
		names = append(names, n.Skill)
	}
	return names
}

// MatchResult is one ranked provider for a seeker.
type MatchResult struct {
	ProviderID string   `json:"provider_id"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons,omitempty"`
	Rank       int      `json:"rank"`
}
