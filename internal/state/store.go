package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound reports a lookup for a run ID the store does not hold.
var ErrRunNotFound = errors.New("run not found")

// Store manages pipeline run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the run database at the given path.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// CreateRun inserts a new run in pending state.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	now := time.Now().UTC()
	if run.Status == "" {
		run.Status = StatusPending
	}
	return s.execWithRetry(ctx, `
		INSERT INTO runs (id, source_path, source_identity, run_dir, status, degraded, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourcePath, run.SourceIdentity, run.Dir, string(run.Status),
		boolToInt(run.Degraded), run.ErrorMessage, formatTime(now), formatTime(now))
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_path, source_identity, run_dir, status, degraded, error_message, created_at, updated_at
		FROM runs WHERE id = ?`, id)

	var run Run
	var status string
	var degraded int
	var createdAt, updatedAt string
	err := row.Scan(&run.ID, &run.SourcePath, &run.SourceIdentity, &run.Dir, &status, &degraded, &run.ErrorMessage, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run: %w", err)
	}
	run.Status = Status(status)
	run.Degraded = degraded != 0
	run.CreatedAt = parseTime(createdAt)
	run.UpdatedAt = parseTime(updatedAt)
	return run, nil
}

// FindRunBySource returns the most recent run for a source identity, if any.
func (s *Store) FindRunBySource(ctx context.Context, identity string) (Run, bool, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs WHERE source_identity = ? ORDER BY created_at DESC LIMIT 1`, identity)
	var id string
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("find run: %w", err)
	}
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// ListRuns returns all runs ordered by creation time, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_path, source_identity, run_dir, status, degraded, error_message, created_at, updated_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var status string
		var degraded int
		var createdAt, updatedAt string
		if err := rows.Scan(&run.ID, &run.SourcePath, &run.SourceIdentity, &run.Dir, &status, &degraded, &run.ErrorMessage, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = Status(status)
		run.Degraded = degraded != 0
		run.CreatedAt = parseTime(createdAt)
		run.UpdatedAt = parseTime(updatedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateRunStatus transitions a run, recording an optional error message.
func (s *Store) UpdateRunStatus(ctx context.Context, id string, status Status, errorMessage string) error {
	return s.execWithRetry(ctx, `
		UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errorMessage, formatTime(time.Now().UTC()), id)
}

// SetRunDegraded flags a run as operating in peaks-only mode.
func (s *Store) SetRunDegraded(ctx context.Context, id string, degraded bool) error {
	return s.execWithRetry(ctx, `
		UPDATE runs SET degraded = ?, updated_at = ? WHERE id = ?`,
		boolToInt(degraded), formatTime(time.Now().UTC()), id)
}

// UpsertStage inserts or replaces a stage record.
func (s *Store) UpsertStage(ctx context.Context, rec StageRecord) error {
	return s.execWithRetry(ctx, `
		INSERT INTO stages (run_id, name, status, fingerprint, artifact_path, artifact_digest, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, name) DO UPDATE SET
			status = excluded.status,
			fingerprint = excluded.fingerprint,
			artifact_path = excluded.artifact_path,
			artifact_digest = excluded.artifact_digest,
			error_message = excluded.error_message,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		rec.RunID, rec.Name, string(rec.Status), rec.Fingerprint, rec.ArtifactPath, rec.ArtifactDigest,
		rec.ErrorMessage, formatTimePtr(rec.StartedAt), formatTimePtr(rec.FinishedAt))
}

// GetStage loads one stage record.
func (s *Store) GetStage(ctx context.Context, runID, name string) (StageRecord, bool, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, name, status, fingerprint, artifact_path, artifact_digest, error_message, started_at, finished_at
		FROM stages WHERE run_id = ? AND name = ?`, runID, name)
	rec, err := scanStage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StageRecord{}, false, nil
	}
	if err != nil {
		return StageRecord{}, false, err
	}
	return rec, true, nil
}

// ListStages returns a run's stage records in execution order.
func (s *Store) ListStages(ctx context.Context, runID string) ([]StageRecord, error) {
	ctx = ensureContext(ctx)
	records := make([]StageRecord, 0, len(StageNames))
	for _, name := range StageNames {
		rec, ok, err := s.GetStage(ctx, runID, name)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// UpsertJob inserts or replaces a render job record.
func (s *Store) UpsertJob(ctx context.Context, rec JobRecord) error {
	return s.execWithRetry(ctx, `
		INSERT INTO jobs (run_id, clip_index, clip_start, clip_end, output_path, status, attempts, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, clip_index) DO UPDATE SET
			clip_start = excluded.clip_start,
			clip_end = excluded.clip_end,
			output_path = excluded.output_path,
			status = excluded.status,
			attempts = excluded.attempts,
			error_message = excluded.error_message`,
		rec.RunID, rec.ClipIndex, rec.ClipStart, rec.ClipEnd, rec.OutputPath, string(rec.Status), rec.Attempts, rec.ErrorMessage)
}

// ListJobs returns a run's render jobs ordered by clip index.
func (s *Store) ListJobs(ctx context.Context, runID string) ([]JobRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, clip_index, clip_start, clip_end, output_path, status, attempts, error_message
		FROM jobs WHERE run_id = ? ORDER BY clip_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var rec JobRecord
		var status string
		if err := rows.Scan(&rec.RunID, &rec.ClipIndex, &rec.ClipStart, &rec.ClipEnd, &rec.OutputPath, &status, &rec.Attempts, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.Status = Status(status)
		jobs = append(jobs, rec)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (StageRecord, error) {
	var rec StageRecord
	var status string
	var startedAt, finishedAt sql.NullString
	err := row.Scan(&rec.RunID, &rec.Name, &status, &rec.Fingerprint, &rec.ArtifactPath, &rec.ArtifactDigest, &rec.ErrorMessage, &startedAt, &finishedAt)
	if err != nil {
		return StageRecord{}, err
	}
	rec.Status = Status(status)
	rec.StartedAt = parseTimePtr(startedAt)
	rec.FinishedAt = parseTimePtr(finishedAt)
	return rec, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func parseTimePtr(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	parsed := parseTime(value.String)
	return &parsed
}
