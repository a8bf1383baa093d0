// Package worker drains the background job queue. Preference edits and pool
// changes enqueue recompute_matches jobs instead of blocking the request.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmendel/mentormatch/internal/matching"
	"github.com/jmendel/mentormatch/internal/storage"
)

// JobType is the queue entry processed by this worker.
const JobType = "recompute_matches"

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// Matcher recomputes and persists a seeker's match set.
type Matcher interface {
	ComputeMatches(ctx context.Context, seekerID string) ([]matching.MatchResult, error)
}

// Worker processes recompute_matches jobs from the SQLite job queue.
type Worker struct {
	store   JobStore
	matcher Matcher
	poll    time.Duration
	logger  *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, matcher Matcher, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:   store,
		matcher: matcher,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single recompute job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

// RecomputePayload is the JSON payload of a recompute_matches job.
type RecomputePayload struct {
	SeekerID string `json:"seeker_id"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload RecomputePayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.SeekerID == "" {
		return fmt.Errorf("payload missing seeker_id")
	}

	results, err := w.matcher.ComputeMatches(ctx, payload.SeekerID)
	if err != nil {
		// A seeker without intake or an empty pool is a benign state here:
		// there is simply nothing to recompute.
		if errors.Is(err, matching.ErrNoPreferences) || errors.Is(err, matching.ErrNoCandidates) {
			w.logger.Info("recompute skipped", "seeker_id", payload.SeekerID, "reason", err)
			return nil
		}
		return fmt.Errorf("recomputing matches for %s: %w", payload.SeekerID, err)
	}

	w.logger.Info("matches recomputed", "seeker_id", payload.SeekerID, "count", len(results))
	return nil
}
