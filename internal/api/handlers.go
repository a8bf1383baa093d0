// Package api exposes the matching engine over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmendel/mentormatch/internal/insight"
	"github.com/jmendel/mentormatch/internal/matching"
	"github.com/jmendel/mentormatch/internal/profile"
	"github.com/jmendel/mentormatch/internal/skillgap"
	"github.com/jmendel/mentormatch/internal/storage"
	"github.com/jmendel/mentormatch/internal/worker"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Matcher abstracts the match orchestrator for the API layer.
type Matcher interface {
	ComputeMatches(ctx context.Context, seekerID string) ([]matching.MatchResult, error)
}

type AppDeps struct {
	Store   *storage.Store
	Prefs   *profile.Manager
	Matcher Matcher
	Token   string
}

// NewAppHandler builds the full HTTP surface. Everything under /v1 requires
// the bearer token; /health does not so probes stay unauthenticated.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/v1/seekers/{seekerID}/matches", handleGetMatches(deps))
		r.Get("/v1/seekers/{seekerID}/compatibility/{providerID}", handleCompatibility(deps))
		r.Get("/v1/seekers/{seekerID}/skill-plan/{providerID}", handleSkillPlan(deps))
		r.Get("/v1/seekers/{seekerID}/preferences", handleGetPreferences(deps))
		r.Put("/v1/seekers/{seekerID}/preferences", handlePutPreferences(deps))

		r.Get("/v1/providers", handleListProviders(deps))
		r.Post("/v1/providers", handleSaveProvider(deps))
		r.Get("/v1/providers/{id}", handleGetProvider(deps))
		r.Delete("/v1/providers/{id}", handleDeleteProvider(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// matchesResponse always reports a status so callers can distinguish an empty
// result from a seeker who never completed intake.
type matchesResponse struct {
	Status  string                 `json:"status"`
	Matches []matching.MatchResult `json:"matches"`
}

func handleGetMatches(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seekerID := chi.URLParam(r, "seekerID")

		results, err := deps.Matcher.ComputeMatches(r.Context(), seekerID)
		switch {
		case errors.Is(err, matching.ErrNoPreferences):
			writeJSON(w, http.StatusOK, matchesResponse{Status: "no_preferences", Matches: []matching.MatchResult{}})
			return
		case errors.Is(err, matching.ErrNoCandidates):
			writeJSON(w, http.StatusOK, matchesResponse{Status: "no_candidates", Matches: []matching.MatchResult{}})
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute matches: %v", err)
			return
		}

		if results == nil {
			results = []matching.MatchResult{}
		}
		writeJSON(w, http.StatusOK, matchesResponse{Status: "ok", Matches: results})
	}
}

func handleCompatibility(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seekerID := chi.URLParam(r, "seekerID")
		providerID := chi.URLParam(r, "providerID")

		prefs, err := deps.Prefs.Preferences(seekerID)
		if errors.Is(err, matching.ErrNoPreferences) {
			httpError(w, http.StatusNotFound, "not_found", "seeker has no preferences")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load preferences: %v", err)
			return
		}

		provider, err := deps.Store.GetProvider(providerID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "provider not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load provider: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, insight.Analyze(prefs.Traits, provider.Traits))
	}
}

func handleSkillPlan(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seekerID := chi.URLParam(r, "seekerID")
		providerID := chi.URLParam(r, "providerID")

		prefs, err := deps.Prefs.Preferences(seekerID)
		if errors.Is(err, matching.ErrNoPreferences) {
			httpError(w, http.StatusNotFound, "not_found", "seeker has no preferences")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load preferences: %v", err)
			return
		}

		provider, err := deps.Store.GetProvider(providerID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "provider not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load provider: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, skillgap.Analyze(prefs.SkillNeeds, &provider))
	}
}

func handleGetPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seekerID := chi.URLParam(r, "seekerID")

		prefs, err := deps.Prefs.Preferences(seekerID)
		if errors.Is(err, matching.ErrNoPreferences) {
			httpError(w, http.StatusNotFound, "not_found", "seeker has no preferences")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load preferences: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, prefs)
	}
}

func handlePutPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seekerID := chi.URLParam(r, "seekerID")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var prefs matching.SeekerPreferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		prefs.SeekerID = seekerID

		if err := validatePreferences(prefs); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		if err := deps.Prefs.Save(prefs); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save preferences: %v", err)
			return
		}

		enqueueRecompute(deps.Store, seekerID)

		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleListProviders(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := deps.Store.ListProviders()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list providers: %v", err)
			return
		}
		if providers == nil {
			providers = []matching.ProviderProfile{}
		}
		writeJSON(w, http.StatusOK, providers)
	}
}

func handleSaveProvider(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var p matching.ProviderProfile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if p.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if err := validateProvider(p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}

		if err := deps.Store.SaveProvider(p); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save provider: %v", err)
			return
		}

		// The pool changed, so every seeker's match set is stale.
		enqueueRecomputeAll(deps.Store)

		writeJSON(w, http.StatusOK, map[string]string{"id": p.ID, "status": "saved"})
	}
}

func handleGetProvider(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := deps.Store.GetProvider(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "provider not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get provider: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func handleDeleteProvider(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteProvider(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "provider not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete provider: %v", err)
			return
		}

		enqueueRecomputeAll(deps.Store)

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

var validCommunicationStyles = map[string]bool{
	"": true, matching.StyleDirect: true, matching.StyleSupportive: true,
	matching.StyleAnalytical: true, matching.StyleCollaborative: true,
}

var validApproaches = map[string]bool{
	"": true, matching.ApproachCoaching: true, matching.ApproachAdvisory: true,
	matching.ApproachSponsorship: true, matching.ApproachRoleModel: true,
}

func validatePreferences(p matching.SeekerPreferences) error {
	if !validCommunicationStyles[p.CommunicationStyle] {
		return fmt.Errorf("unknown communication_style %q", p.CommunicationStyle)
	}
	if !validApproaches[p.Approach] {
		return fmt.Errorf("unknown approach %q", p.Approach)
	}
	if p.GuidanceLevel < 0 || p.GuidanceLevel > 100 {
		return fmt.Errorf("guidance_level must be between 0 and 100")
	}
	for _, n := range p.SkillNeeds {
		if n.Skill == "" {
			return fmt.Errorf("skill_needs entries require a skill name")
		}
		if n.CurrentLevel < 0 || n.TargetLevel < 0 {
			return fmt.Errorf("skill levels must not be negative")
		}
	}
	return nil
}

func validateProvider(p matching.ProviderProfile) error {
	if !validCommunicationStyles[p.CommunicationStyle] {
		return fmt.Errorf("unknown communication_style %q", p.CommunicationStyle)
	}
	if !validApproaches[p.ApproachStyle] {
		return fmt.Errorf("unknown approach_style %q", p.ApproachStyle)
	}
	if p.YearsExperience < 0 {
		return fmt.Errorf("years_experience must not be negative")
	}
	if p.HourlyRate < 0 {
		return fmt.Errorf("hourly_rate must not be negative")
	}
	for _, s := range p.Skills {
		if s.Level < 1 || s.Level > 10 {
			return fmt.Errorf("skill level for %q must be between 1 and 10", s.Name)
		}
	}
	return nil
}

// enqueueRecompute queues a background recompute for one seeker. Queue
// failures are logged, not surfaced: the write that triggered them succeeded.
func enqueueRecompute(store *storage.Store, seekerID string) {
	payload, err := json.Marshal(worker.RecomputePayload{SeekerID: seekerID})
	if err != nil {
		slog.Error("failed to marshal recompute payload", "seeker_id", seekerID, "error", err)
		return
	}
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        worker.JobType,
		PayloadJSON: string(payload),
	}
	if err := store.EnqueueJob(job); err != nil {
		slog.Error("failed to enqueue recompute job", "seeker_id", seekerID, "error", err)
	}
}

func enqueueRecomputeAll(store *storage.Store) {
	seekers, err := store.ListSeekerIDs()
	if err != nil {
		slog.Error("failed to list seekers for recompute", "error", err)
		return
	}
	for _, id := range seekers {
		enqueueRecompute(store, id)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
