package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jmendel/mentormatch/internal/insight"
	"github.com/jmendel/mentormatch/internal/matching"
	"github.com/jmendel/mentormatch/internal/profile"
	"github.com/jmendel/mentormatch/internal/skillgap"
	"github.com/jmendel/mentormatch/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *storage.Store
	Prefs   *profile.Manager
	Matcher Matcher
}

// NewMCPServer creates an MCP server with all matching tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"mentormatch",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("mentormatch — ranks mentors for a seeker and explains compatibility and skill coverage."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("find_matches",
			mcp.WithDescription("Compute and return the ranked mentor matches for a seeker."),
			mcp.WithString("seeker_id", mcp.Description("Seeker identifier"), mcp.Required()),
		),
		mcpFindMatches(deps),
	)

	s.AddTool(
		mcp.NewTool("compatibility_report",
			mcp.WithDescription("Compare a seeker's personality traits against one provider and report strengths and challenges."),
			mcp.WithString("seeker_id", mcp.Description("Seeker identifier"), mcp.Required()),
			mcp.WithString("provider_id", mcp.Description("Provider identifier"), mcp.Required()),
		),
		mcpCompatibilityReport(deps),
	)

	s.AddTool(
		mcp.NewTool("skill_plan",
			mcp.WithDescription("Build a session plan showing how far one provider can close the seeker's skill gaps."),
			mcp.WithString("seeker_id", mcp.Description("Seeker identifier"), mcp.Required()),
			mcp.WithString("provider_id", mcp.Description("Provider identifier"), mcp.Required()),
		),
		mcpSkillPlan(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"providers://catalog",
			"Provider Catalog",
			mcp.WithResourceDescription("All registered providers as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProviders(deps),
	)

	return s
}

func mcpFindMatches(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		seekerID, err := req.RequireString("seeker_id")
		if err != nil {
			return mcpError("seeker_id is required"), nil
		}

		results, err := deps.Matcher.ComputeMatches(ctx, seekerID)
		switch {
		case errors.Is(err, matching.ErrNoPreferences):
			return mcpJSON(matchesResponse{Status: "no_preferences", Matches: []matching.MatchResult{}}), nil
		case errors.Is(err, matching.ErrNoCandidates):
			return mcpJSON(matchesResponse{Status: "no_candidates", Matches: []matching.MatchResult{}}), nil
		case err != nil:
			return mcpError(fmt.Sprintf("matching failed: %v", err)), nil
		}

		if results == nil {
			results = []matching.MatchResult{}
		}
		return mcpJSON(matchesResponse{Status: "ok", Matches: results}), nil
	}
}

func mcpCompatibilityReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prefs, provider, errResult := mcpLoadPair(deps, req)
		if errResult != nil {
			return errResult, nil
		}

		return mcpJSON(insight.Analyze(prefs.Traits, provider.Traits)), nil
	}
}

func mcpSkillPlan(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prefs, provider, errResult := mcpLoadPair(deps, req)
		if errResult != nil {
			return errResult, nil
		}

		return mcpJSON(skillgap.Analyze(prefs.SkillNeeds, provider)), nil
	}
}

// mcpLoadPair resolves the seeker preferences and provider profile both
// pairwise tools need. A non-nil third return value is the error result to
// hand back to the client.
func mcpLoadPair(deps MCPDeps, req mcp.CallToolRequest) (*matching.SeekerPreferences, *matching.ProviderProfile, *mcp.CallToolResult) {
	seekerID, err := req.RequireString("seeker_id")
	if err != nil {
		return nil, nil, mcpError("seeker_id is required")
	}
	providerID, err := req.RequireString("provider_id")
	if err != nil {
		return nil, nil, mcpError("provider_id is required")
	}

	prefs, err := deps.Prefs.Preferences(seekerID)
	if errors.Is(err, matching.ErrNoPreferences) {
		return nil, nil, mcpError(fmt.Sprintf("seeker %s has no preferences", seekerID))
	}
	if err != nil {
		return nil, nil, mcpError(fmt.Sprintf("failed to load preferences: %v", err))
	}

	provider, err := deps.Store.GetProvider(providerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, mcpError(fmt.Sprintf("provider %s not found", providerID))
	}
	if err != nil {
		return nil, nil, mcpError(fmt.Sprintf("failed to load provider: %v", err))
	}

	return prefs, &provider, nil
}

func mcpResourceProviders(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		providers, err := deps.Store.ListProviders()
		if err != nil {
			return nil, fmt.Errorf("failed to list providers: %w", err)
		}
		if providers == nil {
			providers = []matching.ProviderProfile{}
		}

		b, err := json.Marshal(providers)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal providers: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
