package store

import (
	"context"
	"errors"
	"fmt"

	"foodsaver/internal/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps the state document in a badger directory
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens the badger database in dir
func NewBadgerStore(dir string) (*BadgerStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger store requires a directory")
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Load reads the state document
func (s *BadgerStore) Load(ctx context.Context) (*models.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	return Decode(data)
}

// Save replaces the state document
func (s *BadgerStore) Save(ctx context.Context, state *models.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(state)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StateKey), data)
	})
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
