package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearStoreEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{"DB_URL", "DATABASE_URL_PRIMARY", "REDIS_URL", "STORE_BACKEND", "JWT_SECRET", "LOG_LEVEL", "LOG_FORMAT", "DB_TIMEOUT"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearStoreEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "mangadb", cfg.MongoDatabase)
	assert.Equal(t, "mangadb", cfg.RedisPrefix)
	assert.Equal(t, 10*time.Second, cfg.DBTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.AuthEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	clearStoreEnv(t)
	t.Setenv("HTTP_PORT", "eighty")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DB_TIMEOUT", "soon")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearStoreEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MANGATRACK_TEST_ONLY=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Cleanup(func() { os.Unsetenv("MANGATRACK_TEST_ONLY") })

	_, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("MANGATRACK_TEST_ONLY"))
}

func TestStoreBackend_Priority(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want Backend
	}{
		{"mongo first", Config{MongoURL: "mongodb://m", DatabaseURL: "postgres://p", RedisURL: "redis://r"}, BackendMongo},
		{"postgres second", Config{DatabaseURL: "postgres://p", RedisURL: "redis://r"}, BackendPostgres},
		{"redis last", Config{RedisURL: "redis://r"}, BackendRedis},
		{"override", Config{MongoURL: "mongodb://m", RedisURL: "redis://r", Backend: BackendRedis}, BackendRedis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.StoreBackend()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoreBackend_NoneConfigured(t *testing.T) {
	_, err := (&Config{}).StoreBackend()
	assert.ErrorIs(t, err, ErrNoBackend)

	_, err = (&Config{Backend: BackendPostgres, MongoURL: "mongodb://m"}).StoreBackend()
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		HTTPPort:     0,
		Backend:      "sqlite",
		DBTimeout:    0,
		APIRateLimit: 1,
		APIRateBurst: 1,
		LogLevel:     "trace",
		LogFormat:    "xml",
		JWTSecret:    "short",
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"HTTP_PORT", "STORE_BACKEND", "DB_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "JWT_SECRET"} {
		assert.Contains(t, err.Error(), want)
	}
}
