package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Reads values from the file", func(t *testing.T) {
		// Given: a config file with redis storage
		path := writeConfig(t, `
log-level: debug
http-port: "8080"
socket-port: "8081"
storage: redis
session-ttl: 2h
redis:
  host: cache
  port: "6380"
`)

		// When: loading it
		conf, err := Load(path)

		// Then: every value is taken from the file
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "8080", conf.HTTPPort)
		assert.Equal(t, "8081", conf.SocketPort)
		assert.Equal(t, StorageRedis, conf.Storage)
		assert.Equal(t, 2*time.Hour, conf.SessionTTL)
		assert.Equal(t, "cache:6380", conf.Redis.GetRedisAddr())
	})

	t.Run("Applies defaults", func(t *testing.T) {
		// Given: an almost empty config file
		path := writeConfig(t, "log-level: info\n")

		// When: loading it
		conf, err := Load(path)

		// Then: defaults are filled in
		require.NoError(t, err)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "9091", conf.SocketPort)
		assert.Equal(t, StorageMemory, conf.Storage)
		assert.Equal(t, 24*time.Hour, conf.SessionTTL)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "http-port: \"8080\"\n")
		t.Setenv("HTTP_PORT", "7070")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "7070", conf.HTTPPort)
	})

	t.Run("Unknown storage is rejected", func(t *testing.T) {
		path := writeConfig(t, "storage: postgres\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrUnknownStorage)
	})

	t.Run("Missing file returns an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))

		require.Error(t, err)
	})
}

func TestMustLoad(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
	})
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("STORAGE", "redis")
	t.Setenv("REDIS_HOST", "redis.local")

	conf, err := LoadEnv()

	require.NoError(t, err)
	assert.Equal(t, StorageRedis, conf.Storage)
	assert.Equal(t, "redis.local:6379", conf.Redis.GetRedisAddr())
}
