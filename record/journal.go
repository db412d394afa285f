// Package record provides an optional SQLite-backed action journal.
//
// A Journal appends every dispatched action to a durable, ordered log keyed
// by run id. The journal records actions, never state: replaying a recorded
// run through the same reducer reconstructs the state deterministically,
// which is the whole point of threading every mutation through dispatch.
//
// Attach a journal to a store with store.WithRecorder(journal). Recording is
// best-effort: failures are logged by the store and never fail a dispatch.
package record

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/reflux/internal/canonical"
)

//go:embed schema.sql
var schemaSQL string

// Journal is a durable, append-only log of dispatched actions.
// Safe for concurrent use.
type Journal struct {
	db    *sql.DB
	runID string
	seq   atomic.Int64
}

// Open creates or opens a journal database at the given path. Use ":memory:"
// for an ephemeral journal. Each Open starts a fresh run with its own run id.
//
// The database is configured with WAL mode for concurrent reads, NORMAL
// synchronous mode, a 5-second busy timeout and foreign key enforcement.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite supports one writer at a time; keep a single connection to
	// avoid SQLITE_BUSY under contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db, runID: uuid.NewString()}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// RunID returns the identifier of the run this journal instance appends to.
func (j *Journal) RunID() string {
	return j.runID
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends one dispatched action to the current run. The payload is
// canonical JSON so identical actions always journal to identical bytes.
// Duplicate (run, seq) writes are silently ignored for idempotency.
// Record implements store.Recorder.
func (j *Journal) Record(action any) error {
	payload, err := canonical.Normalize(action)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	seq := j.seq.Add(1)

	_, err = j.db.ExecContext(context.Background(), `
		INSERT INTO actions (run_id, seq, kind, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		j.runID,
		seq,
		fmt.Sprintf("%T", action),
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// Entry is one journaled action.
type Entry struct {
	RunID   string
	Seq     int64
	Kind    string
	Payload []byte
}

// Entries reads a run back in dispatch order.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, payload
		FROM actions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			payload string
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	return entries, nil
}

// Runs lists every recorded run id, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id
		FROM actions
		GROUP BY run_id
		ORDER BY MIN(rowid) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
