package credstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devmarvs/digibank/config"
	"github.com/devmarvs/digibank/db"
)

const backendTimeout = 5 * time.Second

// Open builds the store selected by cfg for the given profile.
// Stores holding network resources also implement io.Closer.
func Open(ctx context.Context, cfg config.CredentialStoreConfig, profile string, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverFile, "":
		path := cfg.Path
		if path == "" {
			var err error
			if path, err = DefaultPath(profile); err != nil {
				return nil, fmt.Errorf("credstore: resolve path: %w", err)
			}
		}
		key, err := parseSealKey(cfg.SealKey)
		if err != nil {
			return nil, err
		}
		return NewFileStore(FileOptions{Path: path, SealKey: key})
	case config.DriverRedis:
		options, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("credstore: redis url: %w", err)
		}
		return openRedis(ctx, redis.NewClient(options), profile)
	case config.DriverPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.PostgresDSN, db.Options{MaxOpenConns: 4})
		if err != nil {
			return nil, fmt.Errorf("credstore: postgres: %w", err)
		}
		store, err := NewPostgresStore(PostgresOptions{DB: conn, Profile: profile, Table: cfg.Table, Timeout: backendTimeout, Logger: logger})
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("credstore: migrate: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("credstore: unknown driver %q", cfg.Driver)
	}
}

// openRedis takes ownership of client and closes it unless a store is returned.
func openRedis(ctx context.Context, client *redis.Client, profile string) (*RedisStore, error) {
	store, err := NewRedisStore(RedisOptions{Client: client, Profile: profile, Timeout: backendTimeout})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("credstore: redis ping: %w", err)
	}
	return store, nil
}

func parseSealKey(value string) (*[32]byte, error) {
	if value == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != 32 {
		return nil, errors.New("credstore: seal key must be 32 hex-encoded bytes")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
