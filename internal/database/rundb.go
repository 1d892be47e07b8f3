package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/cliqcrawl/internal/model"
)

// ErrNotFound is returned when a database file is required but missing.
var ErrNotFound = errors.New("database not found")

// RunDB provides SQLite storage for crawl runs.
type RunDB struct {
	db   *sql.DB
	path string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file and its directory.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the database file at path.
func Open(path string, opts Options) (*RunDB, error) {
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	dsn := path + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = path + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, path: path}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := rdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the database file path.
func (r *RunDB) Path() string {
	return r.path
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

func (r *RunDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		inputs INTEGER NOT NULL DEFAULT 0,
		input_digest TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		cancelled_count INTEGER NOT NULL DEFAULT 0,
		columns TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(input_digest);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		source_url TEXT NOT NULL,
		normalized_url TEXT,
		status TEXT NOT NULL,
		failure_kind TEXT,
		reason TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		status_code INTEGER,
		fields TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_records_status ON records(run_id, status);
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// InputDigest returns the hex SHA3-256 digest of the run's input set:
// every record's source URL, newline separated, in record order.
func InputDigest(run *model.CrawlRun) string {
	h := sha3.New256()
	for _, rec := range run.Records {
		_, _ = h.Write([]byte(rec.SourceURL))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SaveRun stores the run and its records, replacing any earlier copy with
// the same ID.
func (r *RunDB) SaveRun(ctx context.Context, run *model.CrawlRun) (err error) {
	columns, err := json.Marshal(run.Columns())
	if err != nil {
		return fmt.Errorf("failed to serialize columns: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, domain, started_at, finished_at, cancelled, inputs, input_digest,
		total, completed, failed, cancelled_count, columns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		domain = excluded.domain,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		cancelled = excluded.cancelled,
		inputs = excluded.inputs,
		input_digest = excluded.input_digest,
		total = excluded.total,
		completed = excluded.completed,
		failed = excluded.failed,
		cancelled_count = excluded.cancelled_count,
		columns = excluded.columns
	`,
		run.ID,
		run.Domain,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Cancelled,
		run.Inputs,
		InputDigest(run),
		run.Counts.Total,
		run.Counts.Completed,
		run.Counts.Failed,
		run.Counts.Cancelled,
		string(columns),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO records (run_id, idx, source_url, normalized_url, status, failure_kind,
		reason, attempts, status_code, fields)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range run.Records {
		fields, mErr := json.Marshal(rec.Fields)
		if mErr != nil {
			err = fmt.Errorf("failed to serialize fields of record %d: %w", rec.Index, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx,
			run.ID,
			rec.Index,
			rec.SourceURL,
			rec.NormalizedURL,
			string(rec.Status),
			string(rec.Kind),
			rec.Reason,
			rec.Attempts,
			rec.StatusCode,
			string(fields),
		); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", rec.Index, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunSummary is the stored metadata of a run without its records.
type RunSummary struct {
	ID          string
	Domain      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Cancelled   bool
	Inputs      int
	InputDigest string
	Counts      model.Progress
}

const runColumns = `id, domain, started_at, finished_at, cancelled, inputs, input_digest,
	total, completed, failed, cancelled_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (RunSummary, error) {
	var (
		s               RunSummary
		started, ended  string
		cancelled       bool
		total, complete int64
	)
	err := row.Scan(
		&s.ID,
		&s.Domain,
		&started,
		&ended,
		&cancelled,
		&s.Inputs,
		&s.InputDigest,
		&total,
		&complete,
		&s.Counts.Failed,
		&s.Counts.Cancelled,
	)
	if err != nil {
		return RunSummary{}, err
	}
	s.StartedAt = parseTimestamp(started)
	s.FinishedAt = parseTimestamp(ended)
	s.Cancelled = cancelled
	s.Counts.Total = total
	s.Counts.Submitted = total
	s.Counts.Completed = complete
	s.Counts.Stopping = cancelled
	return s, nil
}

// ListRuns returns every stored run, newest first.
func (r *RunDB) ListRuns(ctx context.Context) ([]RunSummary, error) {
	return r.querySummaries(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC`)
}

// FindRunsByDigest returns the runs whose input set matches digest, newest first.
func (r *RunDB) FindRunsByDigest(ctx context.Context, digest string) ([]RunSummary, error) {
	return r.querySummaries(ctx,
		`SELECT `+runColumns+` FROM runs WHERE input_digest = ? ORDER BY started_at DESC`, digest)
}

func (r *RunDB) querySummaries(ctx context.Context, query string, args ...any) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	out := make([]RunSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun loads a run and its records. It returns nil when no run has the ID.
func (r *RunDB) GetRun(ctx context.Context, id string) (*model.CrawlRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run := &model.CrawlRun{
		ID:         s.ID,
		Domain:     s.Domain,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Cancelled:  s.Cancelled,
		Inputs:     s.Inputs,
		Counts:     s.Counts,
		Records:    make([]model.Record, 0),
	}

	rows, err := r.db.QueryContext(ctx, `
	SELECT idx, source_url, normalized_url, status, failure_kind, reason, attempts, status_code, fields
	FROM records WHERE run_id = ? ORDER BY idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec                      model.Record
			normalized, kind, reason sql.NullString
			status, fields           string
			statusCode               sql.NullInt64
		)
		if err := rows.Scan(
			&rec.Index,
			&rec.SourceURL,
			&normalized,
			&status,
			&kind,
			&reason,
			&rec.Attempts,
			&statusCode,
			&fields,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.NormalizedURL = normalized.String
		rec.Status = model.Status(status)
		rec.Kind = model.FailureKind(kind.String)
		rec.Reason = reason.String
		rec.StatusCode = int(statusCode.Int64)
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to parse fields of record %d: %w", rec.Index, err)
		}
		run.Records = append(run.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// DeleteRun removes a run and its records. It reports whether a run was deleted.
func (r *RunDB) DeleteRun(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete records: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no known format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
