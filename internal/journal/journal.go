// Package journal records applied edits in a SQLite database so they can be listed and undone.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotFound is returned when no matching entry exists.
var ErrNotFound = errors.New("journal: entry not found")

// InMemory is a path for Open that keeps the journal in memory.
const InMemory = ":memory:"

// Entry is one applied edit of one file.
type Entry struct {
	ID      string    // UUID, assigned by Record
	Root    string    // absolute directory the edit was confined to
	Path    string    // slash-separated path relative to Root
	Before  string    // content before the edit
	After   string    // content after the edit
	Existed bool      // whether the file existed before the edit
	Created time.Time // assigned by Record
	Undone  bool
}

// Journal is a SQLite-backed edit history. It is safe for concurrent use.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS edits (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	path TEXT NOT NULL,
	content_before TEXT NOT NULL,
	content_after TEXT NOT NULL,
	existed INTEGER NOT NULL,
	created INTEGER NOT NULL,
	undone INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_edits_created ON edits(created);
CREATE INDEX IF NOT EXISTS idx_edits_path ON edits(root, path);
`

// Open opens (creating if needed) the journal database at path. Use InMemory for a throwaway journal.
func Open(path string) (*Journal, error) {
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create journal directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if path != InMemory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enable WAL mode")
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize journal schema")
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e, assigning its ID and Created time, and returns the stored entry.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.ID = uuid.NewString()
	e.Created = time.Now().UTC()
	e.Undone = false
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO edits (id, root, path, content_before, content_after, existed, created, undone) VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		e.ID, e.Root, e.Path, e.Before, e.After, boolInt(e.Existed), e.Created.UnixNano(),
	)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "record edit of %s", e.Path)
	}
	return e, nil
}

const selectColumns = `SELECT id, root, path, content_before, content_after, existed, created, undone FROM edits`

// List returns up to limit entries, newest first. limit <= 0 means no limit. Undone entries are included.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	q := selectColumns + ` ORDER BY created DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list edits")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "list edits")
}

// Get returns the entry with the given id.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Last returns the newest entry under root that has not been undone.
func (j *Journal) Last(ctx context.Context, root string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, selectColumns+` WHERE undone = 0 AND root = ? ORDER BY created DESC, rowid DESC LIMIT 1`, root)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// MarkUndone flags the entry as undone so Last skips it.
func (j *Journal) MarkUndone(ctx context.Context, id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx, `UPDATE edits SET undone = 1 WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "mark edit %s undone", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "mark edit undone")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e               Entry
		existed, undone int
		created         int64
	)
	if err := s.Scan(&e.ID, &e.Root, &e.Path, &e.Before, &e.After, &existed, &created, &undone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, errors.Wrap(err, "scan edit")
	}
	e.Existed = existed != 0
	e.Undone = undone != 0
	e.Created = time.Unix(0, created).UTC()
	return e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
