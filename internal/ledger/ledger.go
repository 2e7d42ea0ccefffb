// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package ledger records scenario results in a SQLite database, so that
// regressions can be tracked across runs.
package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/db47h/cosim"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // database/sql driver
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS results (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    scenario    TEXT NOT NULL,
    language    TEXT NOT NULL,
    width       INTEGER NOT NULL,
    policy      TEXT NOT NULL,
    passed      INTEGER NOT NULL,
    cycles      INTEGER NOT NULL,
    fault_cycle INTEGER NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    started_at  TEXT NOT NULL,
    elapsed_ms  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_scenario ON results(scenario, language, width);

CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// Entry is a result row.
type Entry struct {
	ID         int64
	RunID      string
	Scenario   string
	Language   string
	Width      int
	Policy     string
	Passed     bool
	Cycles     int
	FaultCycle int
	Error      string
	StartedAt  time.Time
	Elapsed    time.Duration
}

// Ledger is a result store backed by SQLite.
type Ledger struct {
	db *sql.DB
}

// NewRunID returns a new unique run identifier.
func NewRunID() string { return uuid.NewString() }

// Open opens or creates the ledger at path. Use ":memory:" for a transient
// ledger.
func Open(ctx context.Context, path string) (*Ledger, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "create ledger directory")
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger")
	}
	// single writer; also keeps a :memory: database alive across queries.
	db.SetMaxOpenConns(1)

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize ledger schema")
	}
	return &Ledger{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err == nil && version >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return errors.Wrap(err, "create tables")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return errors.Wrap(err, "record schema version")
	}
	return tx.Commit()
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record records a scenario result under the given run ID.
func (l *Ledger) Record(ctx context.Context, runID string, r *cosim.Result) error {
	var msg string
	if r.Err != nil {
		msg = r.Err.Error()
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO results (run_id, scenario, language, width, policy, passed, cycles, fault_cycle, error, started_at, elapsed_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Scenario, r.Language.String(), r.Width, r.Policy, r.Passed, r.Cycles, r.FaultCycle, msg,
		r.Start.UTC().Format(time.RFC3339Nano), r.Elapsed.Milliseconds())
	return errors.Wrap(err, "insert result")
}

// Recent returns the most recent records, newest first. If limit <= 0, all
// records are returned.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, run_id, scenario, language, width, policy, passed, cycles, fault_cycle, error, started_at, elapsed_ms
FROM results ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query results")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			r       Entry
			started string
			elapsed int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Scenario, &r.Language, &r.Width, &r.Policy, &r.Passed,
			&r.Cycles, &r.FaultCycle, &r.Error, &started, &elapsed); err != nil {
			return nil, errors.Wrap(err, "scan result")
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate results")
}
