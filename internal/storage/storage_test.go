package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"ecofinds/internal/config"
	"ecofinds/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	cfg.StorageBackend = backend
	return cfg
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repos, err := storage.Open(ctx, testConfig(t, config.BackendMemory))
		require.NoError(t, err)
		assert.Nil(t, repos.Redis)
		assert.Nil(t, repos.DB)
		assert.NoError(t, repos.Close())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t, config.BackendRedis)
		cfg.RedisAddr = mr.Addr()

		repos, err := storage.Open(ctx, cfg)
		require.NoError(t, err)
		assert.NotNil(t, repos.Redis)
		assert.NoError(t, repos.Close())
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t, config.BackendRedis)
		cfg.RedisAddr = mr.Addr()
		mr.Close()

		_, err := storage.Open(ctx, cfg)
		assert.ErrorContains(t, err, "Redis")
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := testConfig(t, config.BackendSQLite)
		cfg.DatabaseDSN = filepath.Join(t.TempDir(), "ecofinds.db")

		repos, err := storage.Open(ctx, cfg)
		require.NoError(t, err)
		require.NotNil(t, repos.DB)
		assert.True(t, repos.DB.Migrator().HasTable("purchases"))
		assert.True(t, repos.DB.Migrator().HasIndex("cart_items", "idx_cart_user_product"))
		assert.NoError(t, repos.Close())
	})
}

func TestDialector(t *testing.T) {
	for _, backend := range []string{config.BackendPostgres, config.BackendMySQL, config.BackendSQLite} {
		d, err := storage.Dialector(backend, "dsn")
		require.NoError(t, err, backend)
		assert.Equal(t, backend, d.Name())
	}

	_, err := storage.Dialector(config.BackendRedis, "")
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	repos := storage.NewMemory()

	n, err := storage.Seed(ctx, repos)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	seller, err := repos.Users.GetByEmail(ctx, storage.DemoSellerEmail)
	require.NoError(t, err)
	listings, err := repos.Products.GetBySeller(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, listings, 6)
	for _, p := range listings {
		assert.NotEmpty(t, p.Images)
		assert.Greater(t, p.Price, 0.0)
	}

	n, err = storage.Seed(ctx, repos)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := repos.Products.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}
