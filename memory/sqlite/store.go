// Package sqlite persists crew memory snapshots in a local SQLite file.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/crewmesh/memory"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	agent_key TEXT NOT NULL,
	id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	importance REAL NOT NULL,
	created_at INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL,
	expires_at INTEGER NULL,
	PRIMARY KEY(agent_key, id)
);
CREATE INDEX IF NOT EXISTS idx_memory_entries_agent ON memory_entries(agent_key, created_at);
`

// Store persists memory snapshots in SQLite. It implements memory.Store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the persisted snapshot atomically.
func (s *Store) Save(snapshot memory.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM memory_entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO memory_entries(
		agent_key, id, agent_id, type, content, summary, tags,
		importance, created_at, accessed_at, expires_at
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, entries := range snapshot {
		for _, e := range entries {
			tags, err := json.Marshal(e.Tags)
			if err != nil {
				return fmt.Errorf("encode tags: %w", err)
			}
			if _, err := stmt.Exec(
				key, e.ID, e.AgentID, string(e.Type), e.Content, e.Summary, string(tags),
				e.Importance, e.CreatedAt.UnixMilli(), e.AccessedAt.UnixMilli(),
				nullableUnixMilli(e.ExpiresAt),
			); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. A fresh database yields an empty
// snapshot, not an error.
func (s *Store) Load() (memory.Snapshot, error) {
	rows, err := s.db.Query(`SELECT agent_key, id, agent_id, type, content, summary, tags,
		importance, created_at, accessed_at, expires_at
	FROM memory_entries ORDER BY agent_key, created_at`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	snapshot := memory.Snapshot{}
	for rows.Next() {
		var (
			key, typ, tagsRaw string
			e                 memory.Entry
			created, accessed int64
			expires           sql.NullInt64
		)
		if err := rows.Scan(
			&key, &e.ID, &e.AgentID, &typ, &e.Content, &e.Summary, &tagsRaw,
			&e.Importance, &created, &accessed, &expires,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = memory.EntryType(typ)
		if err := json.Unmarshal([]byte(tagsRaw), &e.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", e.ID, err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		e.AccessedAt = time.UnixMilli(accessed).UTC()
		if expires.Valid {
			e.ExpiresAt = time.UnixMilli(expires.Int64).UTC()
		}
		snapshot[key] = append(snapshot[key], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return snapshot, nil
}

func nullableUnixMilli(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}
