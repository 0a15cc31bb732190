package credstore

import (
	"context"
	"sync"

	"github.com/shoenig/go-conceal"
)

// MemoryStore keeps the token pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pair *TokenPair
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Store(_ context.Context, pair TokenPair) error {
	if _, err := encode(pair); err != nil {
		return err
	}
	s.mu.Lock()
	s.pair = &pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return TokenPair{}, ErrNotFound
	}
	return *s.pair, nil
}

func (s *MemoryStore) AccessToken(ctx context.Context) (*conceal.Text, error) {
	return accessToken(s.Load(ctx))
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.pair = nil
	s.mu.Unlock()
	return nil
}
