// Package store persists the tracker state document to a key-value slot.
package store

import (
	"context"
	"errors"
	"fmt"

	"foodsaver/internal/models"
)

// StateKey is the slot the state document is stored under
const StateKey = "foodWasteData"

// ErrCorruptState is returned by Load when the stored document cannot be parsed
var ErrCorruptState = errors.New("stored state is corrupt")

// Store reads and writes the whole state document
type Store interface {
	// Load returns the stored state, or an empty state when nothing has been
	// saved yet
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, state *models.State) error
	Close() error
}

// Backend selects a Store implementation
type Backend string

const (
	BackendBolt   Backend = "bolt"
	BackendBadger Backend = "badger"
	BackendSQL    Backend = "sql"
	BackendMemory Backend = "memory"
)

// Options configures New
type Options struct {
	Backend Backend
	// Path is the database file (bolt) or directory (badger)
	Path string
	// Dialect and DSN are used by the SQL backend: "sqlite3" or "postgres"
	Dialect string
	DSN     string
}

// New opens the store selected by opts.Backend
func New(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendBolt, "":
		return NewBoltStore(opts.Path)
	case BackendBadger:
		return NewBadgerStore(opts.Path)
	case BackendSQL:
		return NewSQLStore(opts.Dialect, opts.DSN)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Backend)
	}
}
