package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"ecofinds/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, config.BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, "http://localhost:8080/uploads", cfg.UploadsURL())
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PUBLIC_BASE_URL", "https://finds.example/")

	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, config.BackendRedis, cfg.StorageBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "https://finds.example/uploads", cfg.UploadsURL())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecofinds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_BACKEND: memory\nAPP_PORT: \":9090\"\n"), 0o600))

	cfg, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.StorageBackend)
	assert.Equal(t, ":9090", cfg.AppPort)
}

func TestLoad_Rejects(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "cassandra")
	_, err := config.Load(config.New(), "")
	assert.Error(t, err)

	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("IS_PROD", "true")
	_, err = config.Load(config.New(), "")
	assert.ErrorContains(t, err, "JWT_SECRET")
}
