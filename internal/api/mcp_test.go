package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jmendel/mentormatch/internal/matching"
	"github.com/jmendel/mentormatch/internal/profile"
	"github.com/jmendel/mentormatch/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T, matcher Matcher) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if matcher == nil {
		matcher = &mockMatcher{fn: func(context.Context, string) ([]matching.MatchResult, error) {
			return nil, nil
		}}
	}

	return MCPDeps{
		Store:   store,
		Prefs:   profile.NewManager(store),
		Matcher: matcher,
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_FindMatches(t *testing.T) {
	matcher := &mockMatcher{fn: func(_ context.Context, seekerID string) ([]matching.MatchResult, error) {
		if seekerID != "s1" {
			t.Errorf("seekerID = %q, want s1", seekerID)
		}
		return []matching.MatchResult{
			{ProviderID: "p1", Score: 88, Reasons: []string{"strong expertise match"}, Rank: 1},
			{ProviderID: "p2", Score: 61, Rank: 2},
		}, nil
	}}
	deps, _ := newTestMCPDeps(t, matcher)
	handler := mcpFindMatches(deps)

	req := makeCallToolRequest("find_matches", map[string]interface{}{"seeker_id": "s1"})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var resp matchesResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if len(resp.Matches) != 2 || resp.Matches[0].ProviderID != "p1" {
		t.Errorf("unexpected matches: %+v", resp.Matches)
	}
}

func TestMCPTool_FindMatches_NoPreferences(t *testing.T) {
	matcher := &mockMatcher{fn: func(context.Context, string) ([]matching.MatchResult, error) {
		return nil, matching.ErrNoPreferences
	}}
	deps, _ := newTestMCPDeps(t, matcher)
	handler := mcpFindMatches(deps)

	req := makeCallToolRequest("find_matches", map[string]interface{}{"seeker_id": "s1"})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("sentinel states are not tool errors: %s", toolText(t, result))
	}

	var resp matchesResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "no_preferences" {
		t.Errorf("status = %q, want no_preferences", resp.Status)
	}
	if len(resp.Matches) != 0 {
		t.Errorf("expected no matches, got %+v", resp.Matches)
	}
}

func TestMCPTool_FindMatches_MissingArg(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)
	handler := mcpFindMatches(deps)

	result, err := handler(context.Background(), makeCallToolRequest("find_matches", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing seeker_id")
	}
}

func TestMCPTool_FindMatches_Failure(t *testing.T) {
	matcher := &mockMatcher{fn: func(context.Context, string) ([]matching.MatchResult, error) {
		return nil, errors.New("boom")
	}}
	deps, _ := newTestMCPDeps(t, matcher)
	handler := mcpFindMatches(deps)

	req := makeCallToolRequest("find_matches", map[string]interface{}{"seeker_id": "s1"})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for matcher failure")
	}
}

func TestMCPTool_CompatibilityReport(t *testing.T) {
	deps, store := newTestMCPDeps(t, nil)
	seedPreferences(t, store, "s1")
	seedProvider(t, store, "p1")
	handler := mcpCompatibilityReport(deps)

	req := makeCallToolRequest("compatibility_report", map[string]interface{}{
		"seeker_id":   "s1",
		"provider_id": "p1",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &report); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if _, ok := report["overall_score"]; !ok {
		t.Errorf("report missing overall_score: %v", report)
	}
}

func TestMCPTool_CompatibilityReport_ProviderMissing(t *testing.T) {
	deps, store := newTestMCPDeps(t, nil)
	seedPreferences(t, store, "s1")
	handler := mcpCompatibilityReport(deps)

	req := makeCallToolRequest("compatibility_report", map[string]interface{}{
		"seeker_id":   "s1",
		"provider_id": "ghost",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown provider")
	}
}

func TestMCPTool_SkillPlan(t *testing.T) {
	deps, store := newTestMCPDeps(t, nil)
	seedPreferences(t, store, "s1")
	seedProvider(t, store, "p1")
	handler := mcpSkillPlan(deps)

	req := makeCallToolRequest("skill_plan", map[string]interface{}{
		"seeker_id":   "s1",
		"provider_id": "p1",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var analysis map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &analysis); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if _, ok := analysis["plan"]; !ok {
		t.Errorf("analysis missing plan: %v", analysis)
	}
}

func TestMCPTool_SkillPlan_SeekerMissing(t *testing.T) {
	deps, store := newTestMCPDeps(t, nil)
	seedProvider(t, store, "p1")
	handler := mcpSkillPlan(deps)

	req := makeCallToolRequest("skill_plan", map[string]interface{}{
		"seeker_id":   "ghost",
		"provider_id": "p1",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown seeker")
	}
}

func TestMCPResource_Providers(t *testing.T) {
	deps, store := newTestMCPDeps(t, nil)
	seedProvider(t, store, "p1")
	handler := mcpResourceProviders(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("providers://catalog"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(contents))
	}

	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var providers []matching.ProviderProfile
	if err := json.Unmarshal([]byte(text.Text), &providers); err != nil {
		t.Fatalf("failed to parse resource: %v", err)
	}
	if len(providers) != 1 || providers[0].ID != "p1" {
		t.Errorf("unexpected providers: %+v", providers)
	}
}

func TestMCPResource_Providers_Empty(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)
	handler := mcpResourceProviders(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("providers://catalog"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := contents[0].(mcp.TextResourceContents)
	if text.Text != "[]" {
		t.Fatalf("expected empty array, got: %s", text.Text)
	}
}
