package store

import (
	"context"
	"sync"

	"foodsaver/internal/models"
)

// MemoryStore keeps the encoded document in memory
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Decode(s.data)
}

func (s *MemoryStore) Save(ctx context.Context, state *models.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
