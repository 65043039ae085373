// Package journal records every capture attempt, successful or not.
package journal

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one capture attempt.
type Entry struct {
	ID       string
	Pipeline string
	Width    int
	Height   int
	Format   string
	// Category is "ok" for a successful capture, otherwise the error
	// category of the failure.
	Category  string
	Error     string
	Results   int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// Journal stores capture entries.
type Journal interface {
	// Append stores e and returns its ID. A missing ID or CreatedAt is
	// filled in.
	Append(e *Entry) (string, error)
	// List returns up to limit entries, newest first. limit <= 0 means all.
	List(limit int) ([]*Entry, error)
	Close() error
}

func prepare(e *Entry) Entry {
	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	return cp
}
