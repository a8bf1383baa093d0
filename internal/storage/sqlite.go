package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jmendel/mentormatch/internal/matching"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for providers, preferences,
// match results and the job queue.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "mentormatch.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Providers ---

// SaveProvider inserts or fully replaces a provider profile.
func (s *Store) SaveProvider(p matching.ProviderProfile) error {
	expertise, err := json.Marshal(emptyIfNil(p.Expertise))
	if err != nil {
		return fmt.Errorf("marshalling expertise: %w", err)
	}
	skills, err := json.Marshal(p.Skills)
	if err != nil {
		return fmt.Errorf("marshalling skills: %w", err)
	}
	if p.Skills == nil {
		skills = []byte("[]")
	}
	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return fmt.Errorf("marshalling traits: %w", err)
	}
	if p.Traits == nil {
		traits = []byte("{}")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO providers (id, name, headline, expertise, skills, years_experience, hourly_rate, communication_style, approach_style, traits, rating, review_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			headline = excluded.headline,
			expertise = excluded.expertise,
			skills = excluded.skills,
			years_experience = excluded.years_experience,
			hourly_rate = excluded.hourly_rate,
			communication_style = excluded.communication_style,
			approach_style = excluded.approach_style,
			traits = excluded.traits,
			rating = excluded.rating,
			review_count = excluded.review_count,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Headline, string(expertise), string(skills), p.YearsExperience,
		p.HourlyRate, p.CommunicationStyle, p.ApproachStyle, string(traits), p.Rating,
		p.ReviewCount, now, now,
	)
	return err
}

func (s *Store) GetProvider(id string) (matching.ProviderProfile, error) {
	row := s.db.QueryRow(`
		SELECT id, name, headline, expertise, skills, years_experience, hourly_rate, communication_style, approach_style, traits, rating, review_count
		FROM providers WHERE id = ?`, id)
	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return matching.ProviderProfile{}, ErrNotFound
	}
	return p, err
}

func (s *Store) ListProviders() ([]matching.ProviderProfile, error) {
	rows, err := s.db.Query(`
		SELECT id, name, headline, expertise, skills, years_experience, hourly_rate, communication_style, approach_style, traits, rating, review_count
		FROM providers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []matching.ProviderProfile
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// DeleteProvider removes a provider and any match results pointing at it.
func (s *Store) DeleteProvider(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM providers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM match_results WHERE provider_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (matching.ProviderProfile, error) {
	var p matching.ProviderProfile
	var expertise, skills, traits string
	err := row.Scan(&p.ID, &p.Name, &p.Headline, &expertise, &skills, &p.YearsExperience,
		&p.HourlyRate, &p.CommunicationStyle, &p.ApproachStyle, &traits, &p.Rating, &p.ReviewCount)
	if err != nil {
		return matching.ProviderProfile{}, err
	}
	if err := json.Unmarshal([]byte(expertise), &p.Expertise); err != nil {
		return matching.ProviderProfile{}, fmt.Errorf("parsing expertise for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return matching.ProviderProfile{}, fmt.Errorf("parsing skills for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return matching.ProviderProfile{}, fmt.Errorf("parsing traits for %s: %w", p.ID, err)
	}
	return p, nil
}

// --- Seeker preferences ---

// SavePreferences inserts or fully replaces a seeker's intake record.
func (s *Store) SavePreferences(p matching.SeekerPreferences) error {
	skillNeeds, err := json.Marshal(p.SkillNeeds)
	if err != nil {
		return fmt.Errorf("marshalling skill needs: %w", err)
	}
	if p.SkillNeeds == nil {
		skillNeeds = []byte("[]")
	}
	interests, err := json.Marshal(emptyIfNil(p.IndustryInterests))
	if err != nil {
		return fmt.Errorf("marshalling industry interests: %w", err)
	}
	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return fmt.Errorf("marshalling traits: %w", err)
	}
	if p.Traits == nil {
		traits = []byte("{}")
	}

	_, err = s.db.Exec(`
		INSERT INTO seeker_preferences (seeker_id, communication_style, feedback_style, approach, guidance_level, skill_needs, industry_interests, traits, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seeker_id) DO UPDATE SET
			communication_style = excluded.communication_style,
			feedback_style = excluded.feedback_style,
			approach = excluded.approach,
			guidance_level = excluded.guidance_level,
			skill_needs = excluded.skill_needs,
			industry_interests = excluded.industry_interests,
			traits = excluded.traits,
			updated_at = excluded.updated_at`,
		p.SeekerID, p.CommunicationStyle, p.FeedbackStyle, p.Approach, p.GuidanceLevel,
		string(skillNeeds), string(interests), string(traits),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetPreferences(seekerID string) (matching.SeekerPreferences, error) {
	var p matching.SeekerPreferences
	var skillNeeds, interests, traits string
	err := s.db.QueryRow(`
		SELECT seeker_id, communication_style, feedback_style, approach, guidance_level, skill_needs, industry_interests, traits
		FROM seeker_preferences WHERE seeker_id = ?`, seekerID,
	).Scan(&p.SeekerID, &p.CommunicationStyle, &p.FeedbackStyle, &p.Approach,
		&p.GuidanceLevel, &skillNeeds, &interests, &traits)
	if err == sql.ErrNoRows {
		return matching.SeekerPreferences{}, ErrNotFound
	}
	if err != nil {
		return matching.SeekerPreferences{}, err
	}
	if err := json.Unmarshal([]byte(skillNeeds), &p.SkillNeeds); err != nil {
		return matching.SeekerPreferences{}, fmt.Errorf("parsing skill needs for %s: %w", seekerID, err)
	}
	if err := json.Unmarshal([]byte(interests), &p.IndustryInterests); err != nil {
		return matching.SeekerPreferences{}, fmt.Errorf("parsing industry interests for %s: %w", seekerID, err)
	}
	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return matching.SeekerPreferences{}, fmt.Errorf("parsing traits for %s: %w", seekerID, err)
	}
	return p, nil
}

// ListSeekerIDs returns every seeker with a stored intake record.
func (s *Store) ListSeekerIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT seeker_id FROM seeker_preferences ORDER BY seeker_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Match results ---

// ReplaceMatches swaps a seeker's entire match set in a single transaction.
// Either the new set lands in full or the previous one stays intact.
func (s *Store) ReplaceMatches(seekerID string, results []matching.MatchResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM match_results WHERE seeker_id = ?`, seekerID); err != nil {
		return fmt.Errorf("clearing previous matches: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range results {
		reasons, err := json.Marshal(emptyIfNil(r.Reasons))
		if err != nil {
			return fmt.Errorf("marshalling reasons: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO match_results (seeker_id, provider_id, score, reasons, rank, computed_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			seekerID, r.ProviderID, r.Score, string(reasons), r.Rank, now,
		); err != nil {
			return fmt.Errorf("inserting match for %s: %w", r.ProviderID, err)
		}
	}

	return tx.Commit()
}

// GetMatches returns a seeker's persisted matches in rank order.
func (s *Store) GetMatches(seekerID string) ([]matching.MatchResult, error) {
	rows, err := s.db.Query(`
		SELECT provider_id, score, reasons, rank
		FROM match_results WHERE seeker_id = ?
		ORDER BY rank ASC, provider_id ASC`, seekerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []matching.MatchResult
	for rows.Next() {
		var r matching.MatchResult
		var reasons string
		if err := rows.Scan(&r.ProviderID, &r.Score, &reasons, &r.Rank); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(reasons), &r.Reasons); err != nil {
			return nil, fmt.Errorf("parsing reasons for %s: %w", r.ProviderID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// emptyIfNil keeps JSON columns as [] instead of null.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// --- Jobs ---

func (s *Store) EnqueueJob(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM jobs
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]interface{}, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err = tx.QueryRow(query, args...).Scan(
		&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError,
	)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next job: %w", err)
	}

	res, err := tx.Exec(`UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, j.ID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("checking updated job rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	j.Status = "running"
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for job %s: %w", j.ID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %s: %w", j.ID, err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, now); err != nil {
		return nil, fmt.Errorf("parsing updated_at for job %s: %w", j.ID, err)
	}
	return &j, nil
}

func (s *Store) CompleteJob(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FailJob(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(`UPDATE jobs SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		runAfter := now.Add(backoff)
		_, err = tx.Exec(`UPDATE jobs SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, runAfter.Format(time.RFC3339), now.Format(time.RFC3339), id)
	}

	if err != nil {
		return err
	}

	return tx.Commit()
}
