package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SqlJournal implements Journal with SQLite.
type SqlJournal struct {
	db *sql.DB
}

// busyTimeout bounds how long a writer waits on a lock held by another
// process before failing with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// Open opens or creates a SQLite journal at path, creating the parent
// directory if needed. Writes within the process are serialized on a single
// connection.
func Open(path string) (*SqlJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	j := &SqlJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SqlJournal) migrate() error {
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	var v int
	err := j.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := j.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown journal schema version %d", v)
	}
	return nil
}

func (j *SqlJournal) Append(e *Entry) (string, error) {
	if e == nil {
		return "", errors.New("entry is nil")
	}
	cp := prepare(e)
	_, err := j.db.Exec(
		`INSERT INTO captures(id, pipeline, width, height, format, category, error, results, elapsed_ns, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.Pipeline, cp.Width, cp.Height, cp.Format, cp.Category,
		nullIfEmpty(cp.Error), cp.Results, int64(cp.Elapsed), cp.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert capture: %w", err)
	}
	return cp.ID, nil
}

func (j *SqlJournal) List(limit int) ([]*Entry, error) {
	q := `SELECT id, pipeline, width, height, format, category, error, results, elapsed_ns, created_at
		FROM captures ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e       Entry
			errText sql.NullString
			elapsed int64
			created string
		)
		if err := rows.Scan(&e.ID, &e.Pipeline, &e.Width, &e.Height, &e.Format, &e.Category,
			&errText, &e.Results, &elapsed, &created); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		e.Error = nullStr(errText)
		e.Elapsed = time.Duration(elapsed)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (j *SqlJournal) Close() error { return j.db.Close() }

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
