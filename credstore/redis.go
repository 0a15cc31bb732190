package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shoenig/go-conceal"
)

const defaultRedisPrefix = "digibank:credentials:"

// RedisOptions configures a Redis-backed store.
type RedisOptions struct {
	Client  *redis.Client
	Profile string
	Prefix  string
	Timeout time.Duration
}

// RedisStore keeps the token pair under one key per profile.
type RedisStore struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(options RedisOptions) (*RedisStore, error) {
	if options.Client == nil {
		return nil, errors.New("credstore: redis client is required")
	}
	if options.Profile == "" {
		return nil, errors.New("credstore: profile is required")
	}
	prefix := options.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client:  options.Client,
		key:     prefix + options.Profile,
		timeout: options.Timeout,
	}, nil
}

func (s *RedisStore) Store(ctx context.Context, pair TokenPair) error {
	data, err := encode(pair)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("credstore: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (TokenPair, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return TokenPair{}, ErrNotFound
		}
		return TokenPair{}, fmt.Errorf("credstore: redis get: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) AccessToken(ctx context.Context) (*conceal.Text, error) {
	return accessToken(s.Load(ctx))
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("credstore: redis del: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
