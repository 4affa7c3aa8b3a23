// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records fetch runs and their per-record outcomes in a
// SQLite database. It is an audit log: nothing reads it back to decide what
// to fetch.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// DefaultListLimit bounds ListRuns when the caller passes zero.
const DefaultListLimit = 20

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one fetch invocation.
type Run struct {
	ID         string
	Term       string
	Strategy   string
	Variant    string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Fetched    int
	Skipped    int
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			term TEXT NOT NULL,
			strategy TEXT NOT NULL,
			variant TEXT,
			output_dir TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			fetched INTEGER NOT NULL,
			skipped INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			record_id TEXT NOT NULL,
			success INTEGER NOT NULL,
			failure TEXT,
			error TEXT,
			source_url TEXT,
			local_path TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_record ON results(record_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores run and its results in one transaction. An empty run.ID
// is replaced by a fresh UUID; the stored ID is returned.
func (s *Store) RecordRun(ctx context.Context, run Run, results []types.FetchResult) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, term, strategy, variant, output_dir, started_at, finished_at, fetched, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Term, run.Strategy, run.Variant, run.OutputDir,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.Fetched, run.Skipped,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, seq, record_id, success, failure, error, source_url, local_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.ID.String(), r.Success,
			string(r.Failure), r.Err, r.SourceURL, r.LocalPath); err != nil {
			return "", fmt.Errorf("inserting result %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, strategy, variant, output_dir, started_at, finished_at, fetched, skipped
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			variant, outDir   sql.NullString
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Term, &r.Strategy, &variant, &outDir,
			&started, &finished, &r.Fetched, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Variant = variant.String
		r.OutputDir = outDir.String
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Results returns the stored results of one run, in run order.
func (s *Store) Results(ctx context.Context, runID string) ([]types.FetchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, success, failure, error, source_url, local_path
		 FROM results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []types.FetchResult
	for rows.Next() {
		var (
			r                        types.FetchResult
			id                       string
			failure, msg, src, local sql.NullString
		)
		if err := rows.Scan(&id, &r.Success, &failure, &msg, &src, &local); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.ID = types.RecordID(id)
		r.Failure = types.FailureKind(failure.String)
		r.Err = msg.String
		r.SourceURL = src.String
		r.LocalPath = local.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// FormatRuns writes runs as an aligned table.
func FormatRuns(w io.Writer, runs []Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTERM\tSTRATEGY\tFETCHED\tSKIPPED\tRUN")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Term, r.Strategy, r.Fetched, r.Skipped, r.ID)
	}
	tw.Flush()
}
