package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmendel/mentormatch/internal/config"
	"github.com/jmendel/mentormatch/internal/matching"
)

var ctx = context.Background()

// --- provider ---

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage the provider pool",
}

var providerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register or update a provider",
	Long: `Register or update a provider.

Examples:
  mentormatch provider add --name "Sam Ortiz" --expertise go,distributed-systems --skills "Go:9,Kubernetes:7" --years 12 --style direct --approach coaching
  mentormatch provider add --file ./provider.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var p matching.ProviderProfile
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("invalid provider JSON: %w", err)
			}
		} else {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name or --file is required")
			}
			p.Name = name
			p.Headline, _ = cmd.Flags().GetString("headline")
			p.YearsExperience, _ = cmd.Flags().GetInt("years")
			p.HourlyRate, _ = cmd.Flags().GetFloat64("rate")
			p.CommunicationStyle, _ = cmd.Flags().GetString("style")
			p.ApproachStyle, _ = cmd.Flags().GetString("approach")

			expertise, _ := cmd.Flags().GetString("expertise")
			p.Expertise = splitCSV(expertise)

			skillsStr, _ := cmd.Flags().GetString("skills")
			skills, err := parseSkills(skillsStr)
			if err != nil {
				return err
			}
			p.Skills = skills
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(ctx, "/v1/providers", p)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Saved provider %s", result["id"])
		return nil
	},
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, "/v1/providers")
		if err != nil {
			return err
		}

		var providers []matching.ProviderProfile
		if err := decodeJSON(resp, &providers); err != nil {
			return err
		}

		if len(providers) == 0 {
			fmt.Println("No providers registered.")
			return nil
		}

		for _, p := range providers {
			fmt.Printf("%s  %s  %dy  %s/%s\n",
				colorize(colorCyan, shortID(p.ID)),
				p.Name,
				p.YearsExperience,
				p.CommunicationStyle,
				p.ApproachStyle,
			)
		}
		return nil
	},
}

var providerRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(ctx, "/v1/providers/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Removed provider %s", args[0])
		return nil
	},
}

func init() {
	providerAddCmd.Flags().String("file", "", "JSON file with the full provider profile")
	providerAddCmd.Flags().String("name", "", "provider name")
	providerAddCmd.Flags().String("headline", "", "short headline")
	providerAddCmd.Flags().String("expertise", "", "comma-separated expertise areas")
	providerAddCmd.Flags().String("skills", "", "comma-separated name:level pairs, e.g. Go:9,Kubernetes:7")
	providerAddCmd.Flags().Int("years", 0, "years of experience")
	providerAddCmd.Flags().Float64("rate", 0, "hourly rate")
	providerAddCmd.Flags().String("style", "", "communication style (direct, supportive, analytical, collaborative)")
	providerAddCmd.Flags().String("approach", "", "mentorship approach (coaching, advisory, sponsorship, roleModel)")

	providerCmd.AddCommand(providerAddCmd)
	providerCmd.AddCommand(providerListCmd)
	providerCmd.AddCommand(providerRmCmd)
}

// --- prefs ---

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage seeker preferences",
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <seeker-id>",
	Short: "Set a seeker's preferences",
	Long: `Set a seeker's preferences.

Examples:
  mentormatch prefs set alice --style direct --approach coaching --skills "Go:3:7,System Design:2:6" --industries fintech
  mentormatch prefs set alice --file ./prefs.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var prefs matching.SeekerPreferences
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			if err := json.Unmarshal(data, &prefs); err != nil {
				return fmt.Errorf("invalid preferences JSON: %w", err)
			}
		} else {
			prefs.CommunicationStyle, _ = cmd.Flags().GetString("style")
			prefs.FeedbackStyle, _ = cmd.Flags().GetString("feedback")
			prefs.Approach, _ = cmd.Flags().GetString("approach")
			prefs.GuidanceLevel, _ = cmd.Flags().GetInt("guidance")

			industries, _ := cmd.Flags().GetString("industries")
			prefs.IndustryInterests = splitCSV(industries)

			skillsStr, _ := cmd.Flags().GetString("skills")
			needs, err := parseSkillNeeds(skillsStr)
			if err != nil {
				return err
			}
			prefs.SkillNeeds = needs
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(ctx, "/v1/seekers/"+args[0]+"/preferences", prefs)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Preferences saved for %s", args[0])
		return nil
	},
}

var prefsShowCmd = &cobra.Command{
	Use:   "show <seeker-id>",
	Short: "Show a seeker's preferences as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, "/v1/seekers/"+args[0]+"/preferences")
		if err != nil {
			return err
		}

		var prefs any
		if err := decodeJSON(resp, &prefs); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(prefs)
	},
}

func init() {
	prefsSetCmd.Flags().String("file", "", "JSON file with the full preferences")
	prefsSetCmd.Flags().String("style", "", "preferred communication style")
	prefsSetCmd.Flags().String("feedback", "", "preferred feedback style")
	prefsSetCmd.Flags().String("approach", "", "preferred mentorship approach")
	prefsSetCmd.Flags().Int("guidance", 0, "desired guidance level (0-100)")
	prefsSetCmd.Flags().String("skills", "", "comma-separated skill:current:target triples, e.g. Go:3:7")
	prefsSetCmd.Flags().String("industries", "", "comma-separated industry interests")

	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsShowCmd)
}

// --- matches ---

var matchesCmd = &cobra.Command{
	Use:   "matches <seeker-id>",
	Short: "Compute and show ranked matches for a seeker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, "/v1/seekers/"+args[0]+"/matches")
		if err != nil {
			return err
		}

		var result struct {
			Status  string                 `json:"status"`
			Matches []matching.MatchResult `json:"matches"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		switch result.Status {
		case "no_preferences":
			printWarning("Seeker %s has no preferences yet. Run: mentormatch prefs set %s ...", args[0], args[0])
			return nil
		case "no_candidates":
			printWarning("No providers registered yet. Run: mentormatch provider add ...")
			return nil
		}

		if len(result.Matches) == 0 {
			fmt.Println("No matches found.")
			return nil
		}

		for _, m := range result.Matches {
			fmt.Printf("\n%s  %s  [score %d]\n",
				colorize(colorBold, fmt.Sprintf("#%d", m.Rank)),
				colorize(colorCyan, m.ProviderID),
				m.Score,
			)
			for _, reason := range m.Reasons {
				fmt.Printf("   - %s\n", reason)
			}
		}
		return nil
	},
}

// --- compat ---

var compatCmd = &cobra.Command{
	Use:   "compat <seeker-id> <provider-id>",
	Short: "Show a personality compatibility report for a pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, "/v1/seekers/"+args[0]+"/compatibility/"+args[1])
		if err != nil {
			return err
		}

		var report struct {
			OverallScore       int    `json:"overall_score"`
			OverallDescription string `json:"overall_description"`
			Strengths          []struct {
				Area        string `json:"area"`
				Description string `json:"description"`
			} `json:"strengths"`
			Challenges []struct {
				Area        string `json:"area"`
				Description string `json:"description"`
			} `json:"challenges"`
		}
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		fmt.Printf("%s %d — %s\n", colorize(colorBold, "Compatibility:"), report.OverallScore, report.OverallDescription)
		for _, s := range report.Strengths {
			fmt.Printf("  %s %s: %s\n", colorize(colorGreen, "+"), s.Area, s.Description)
		}
		for _, c := range report.Challenges {
			fmt.Printf("  %s %s: %s\n", colorize(colorYellow, "!"), c.Area, c.Description)
		}
		return nil
	},
}

// --- plan ---

var planCmd = &cobra.Command{
	Use:   "plan <seeker-id> <provider-id>",
	Short: "Show the skill development plan for a pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, "/v1/seekers/"+args[0]+"/skill-plan/"+args[1])
		if err != nil {
			return err
		}

		var analysis struct {
			OverallScore int `json:"overall_score"`
			Plan         struct {
				Items []struct {
					Skill       string `json:"skill"`
					FromLevel   int    `json:"from_level"`
					ToLevel     int    `json:"to_level"`
					TargetLevel int    `json:"target_level"`
					Sessions    int    `json:"sessions"`
				} `json:"items"`
				TotalSessions int    `json:"total_sessions"`
				Timeframe     string `json:"timeframe"`
			} `json:"plan"`
		}
		if err := decodeJSON(resp, &analysis); err != nil {
			return err
		}

		fmt.Printf("%s %d%%\n", colorize(colorBold, "Skill coverage:"), analysis.OverallScore)
		for _, item := range analysis.Plan.Items {
			fmt.Printf("  %s: level %d -> %d (%d sessions)", item.Skill, item.FromLevel, item.ToLevel, item.Sessions)
			if item.TargetLevel > item.ToLevel {
				fmt.Printf(" %s", colorize(colorYellow, fmt.Sprintf("[target %d]", item.TargetLevel)))
			}
			fmt.Println()
		}
		if analysis.Plan.TotalSessions > 0 {
			fmt.Printf("  Total: %d sessions over %s\n", analysis.Plan.TotalSessions, analysis.Plan.Timeframe)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- helpers ---

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseSkills parses "Go:9,Kubernetes:7" into skill levels.
func parseSkills(s string) ([]matching.SkillLevel, error) {
	if s == "" {
		return nil, nil
	}
	var skills []matching.SkillLevel
	for _, part := range splitCSV(s) {
		name, levelStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid skill %q, expected name:level", part)
		}
		level, err := strconv.Atoi(strings.TrimSpace(levelStr))
		if err != nil {
			return nil, fmt.Errorf("invalid level in %q: %w", part, err)
		}
		skills = append(skills, matching.SkillLevel{Name: strings.TrimSpace(name), Level: level})
	}
	return skills, nil
}

// parseSkillNeeds parses "Go:3:7,System Design:2:6" into skill needs.
func parseSkillNeeds(s string) ([]matching.SkillNeed, error) {
	if s == "" {
		return nil, nil
	}
	var needs []matching.SkillNeed
	for _, part := range splitCSV(s) {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid skill need %q, expected skill:current:target", part)
		}
		current, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid current level in %q: %w", part, err)
		}
		target, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid target level in %q: %w", part, err)
		}
		needs = append(needs, matching.SkillNeed{
			Skill:        strings.TrimSpace(fields[0]),
			CurrentLevel: current,
			TargetLevel:  target,
			Importance:   1,
		})
	}
	return needs, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
