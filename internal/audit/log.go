package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pindral/brainstore/internal/repo"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Log is the durable event log. Uses SQLite with WAL mode so readers
// never block the writer.
type Log struct {
	db    *sql.DB
	clock func() time.Time
}

// Entry is one recorded event.
type Entry struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Brain      string         `json:"brain,omitempty"`
	Project    string         `json:"project,omitempty"`
	Entity     string         `json:"entity,omitempty"`
	Version    int64          `json:"version,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Open creates or opens the log database at path, applying pragmas and
// migrations. Idempotent.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to audit log: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Log{db: db, clock: time.Now}, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// SetClock overrides the timestamp source. Tests use a fixed clock.
func (l *Log) SetClock(clock func() time.Time) {
	l.clock = clock
}

// Record appends one event row.
func (l *Log) Record(ctx context.Context, e repo.Event) error {
	brainSlug, project, entity, version, detail := describe(e)

	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO events (name, brain, project, entity, version, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.EventName(),
		brainSlug,
		project,
		entity,
		version,
		string(detailJSON),
		l.clock().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first. limit <= 0
// means a default of 100.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, brain, project, entity, version, detail, recorded_at
		FROM events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry      Entry
			detailJSON string
			recordedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Brain, &entry.Project,
			&entry.Entity, &entry.Version, &detailJSON, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if err := json.Unmarshal([]byte(detailJSON), &entry.Detail); err != nil {
			return nil, fmt.Errorf("decode audit detail: %w", err)
		}
		if entry.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("decode audit timestamp: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Attach subscribes the log to every event name on the bus. Recording
// failures are swallowed: the log observes, it never vetoes.
func (l *Log) Attach(bus *repo.Bus) []repo.Subscription {
	names := []string{
		repo.EventWriteRetry,
		repo.EventWriteIntegrityFailed,
		repo.EventWriteCompleted,
		repo.EventEntitySaved,
		repo.EventEntityDeleted,
		repo.EventEntityRestored,
		repo.EventProjectUpdated,
		repo.EventProjectDeleted,
		repo.EventCleanupCompleted,
	}
	subs := make([]repo.Subscription, 0, len(names))
	for _, name := range names {
		subs = append(subs, bus.Subscribe(name, func(e repo.Event) {
			_ = l.Record(context.Background(), e)
		}))
	}
	return subs
}

// describe flattens an event into the log's columns.
func describe(e repo.Event) (brainSlug, project, entity string, version int64, detail map[string]any) {
	detail = map[string]any{}
	switch ev := e.(type) {
	case repo.WriteRetry:
		brainSlug = ev.Brain
		detail["path"] = ev.Path
		detail["attempt"] = ev.Attempt
		if ev.Cause != nil {
			detail["cause"] = ev.Cause.Error()
		}
	case repo.WriteIntegrityFailed:
		brainSlug = ev.Brain
		detail["path"] = ev.Path
		detail["expected"] = ev.Expected
		detail["actual"] = ev.Actual
	case repo.WriteCompleted:
		brainSlug = ev.Brain
		detail["path"] = ev.Path
		detail["hash"] = ev.Hash
		detail["attempts"] = ev.Attempts
	case repo.EntitySaved:
		brainSlug, project, entity, version = ev.Brain, ev.Project, ev.Entity, ev.Version
		detail["hash"] = ev.Hash
		detail["commit"] = ev.Commit
	case repo.EntityDeleted:
		brainSlug, project = ev.Brain, ev.Project
		detail["entities"] = ev.Entities
		detail["hard"] = ev.Hard
	case repo.EntityRestored:
		brainSlug, project, entity, version = ev.Brain, ev.Project, ev.Entity, ev.Version
	case repo.ProjectUpdated:
		brainSlug, project = ev.Brain, ev.Project
		detail["action"] = ev.Action
	case repo.ProjectDeleted:
		brainSlug, project = ev.Brain, ev.Project
		detail["purged_commits"] = ev.PurgedCommits
	case repo.CleanupCompleted:
		brainSlug, project = ev.Brain, ev.Project
		detail["op"] = ev.Op
		detail["affected"] = ev.Affected
	}
	return brainSlug, project, entity, version, detail
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
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	// No incremental migrations yet; stamp the current version.
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
