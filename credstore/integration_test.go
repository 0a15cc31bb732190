//go:build integration

package credstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/devmarvs/digibank/config"
	"github.com/devmarvs/digibank/internal/containers"
)

func TestRedisStore(t *testing.T) {
	url, client := containers.Redis(t)
	n := 0
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		n++
		store, err := NewRedisStore(RedisOptions{Client: client, Profile: fmt.Sprintf("profile-%d", n)})
		require.NoError(t, err)
		return store
	}})

	store, err := Open(context.Background(), config.CredentialStoreConfig{Driver: config.DriverRedis, RedisURL: url}, "opened", nil)
	require.NoError(t, err)
	require.NoError(t, store.(*RedisStore).Close())
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	dsn := containers.Postgres(t)

	opened, err := Open(ctx, config.CredentialStoreConfig{Driver: config.DriverPostgres, PostgresDSN: dsn, Table: DefaultPostgresTable}, "opened", nil)
	require.NoError(t, err)
	pg := opened.(*PostgresStore)
	t.Cleanup(func() { _ = pg.Close() })

	plan, err := pg.Migrations().Plan(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, plan)
	for _, entry := range plan {
		require.True(t, entry.Applied, entry.Name)
	}
	applied, err := pg.Migrations().Up(ctx)
	require.NoError(t, err)
	require.Zero(t, applied)

	n := 0
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		n++
		store, err := NewPostgresStore(PostgresOptions{DB: pg.raw, Profile: fmt.Sprintf("profile-%d", n)})
		require.NoError(t, err)
		return store
	}})
}
