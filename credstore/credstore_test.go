package credstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreSuite exercises the behaviour every backend must share.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func (s *StoreSuite) TestEmptyStoreReportsNotFound() {
	_, err := s.store.AccessToken(context.Background())
	s.ErrorIs(err, ErrNotFound)

	_, err = s.store.Load(context.Background())
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestStoreThenRead() {
	ctx := context.Background()
	s.Require().NoError(s.store.Store(ctx, NewTokenPair("A1", "R1")))

	access, err := s.store.AccessToken(ctx)
	s.Require().NoError(err)
	s.Equal("A1", access.Unveil())

	pair, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal("R1", pair.Refresh.Unveil())
}

func (s *StoreSuite) TestLastWriteWins() {
	ctx := context.Background()
	s.Require().NoError(s.store.Store(ctx, NewTokenPair("A1", "R1")))
	s.Require().NoError(s.store.Store(ctx, NewTokenPair("A2", "R2")))

	pair, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal("A2", pair.Access.Unveil())
	s.Equal("R2", pair.Refresh.Unveil())
}

func (s *StoreSuite) TestClearIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Store(ctx, NewTokenPair("A1", "R1")))

	s.Require().NoError(s.store.Clear(ctx))
	s.Require().NoError(s.store.Clear(ctx))

	_, err := s.store.AccessToken(ctx)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestRejectsIncompletePair() {
	ctx := context.Background()
	s.Error(s.store.Store(ctx, NewTokenPair("A1", "")))
	s.Error(s.store.Store(ctx, TokenPair{}))

	_, err := s.store.Load(ctx)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestConcurrentWritesNeverMix() {
	ctx := context.Background()
	pairs := []TokenPair{NewTokenPair("A1", "R1"), NewTokenPair("A2", "R2")}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(pair TokenPair) {
			defer wg.Done()
			_ = s.store.Store(ctx, pair)
		}(pairs[i%2])
	}
	wg.Wait()

	pair, err := s.store.Load(ctx)
	s.Require().NoError(err)
	matched := false
	for _, want := range pairs {
		if pair.Access.Unveil() == want.Access.Unveil() {
			s.Equal(want.Refresh.Unveil(), pair.Refresh.Unveil())
			matched = true
		}
	}
	s.True(matched)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) Store { return NewMemoryStore() }})
}

func TestFileStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		store, err := NewFileStore(FileOptions{Path: filepath.Join(t.TempDir(), "profile", "tokens.json")})
		require.NoError(t, err)
		return store
	}})
}

func TestSealedFileStore(t *testing.T) {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		store, err := NewFileStore(FileOptions{Path: filepath.Join(t.TempDir(), "tokens.json"), SealKey: &key})
		require.NoError(t, err)
		return store
	}})
}

func TestPostgresMigrationsPlan(t *testing.T) {
	runner := Migrations(nil, "")
	plan, err := runner.Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "credentials", plan[0].Name)
	assert.NotEmpty(t, plan[0].DownPath)
	assert.Equal(t, DefaultPostgresTable+"_migrations", runner.Table)
	assert.Equal(t, DefaultPostgresTable, runner.Vars["table"])
}

func TestOpenRedisClosesClientOnRejectedOptions(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	_, err := openRedis(context.Background(), client, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile is required")
	assert.ErrorIs(t, client.Ping(context.Background()).Err(), redis.ErrClosed)
}
