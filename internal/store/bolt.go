package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"foodsaver/internal/models"

	"go.etcd.io/bbolt"
)

var stateBucket = []byte("foodsaver")

// BoltStore keeps the state document in a single bbolt file
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the bbolt file at path
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory for bolt db: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load reads the state document
func (s *BoltStore) Load(ctx context.Context) (*models.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(stateBucket).Get([]byte(StateKey)); v != nil {
			// bbolt values are only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	return Decode(data)
}

// Save replaces the state document
func (s *BoltStore) Save(ctx context.Context, state *models.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(state)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(StateKey), data)
	})
}

// Close closes the database file
func (s *BoltStore) Close() error {
	return s.db.Close()
}
