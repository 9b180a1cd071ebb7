package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultWorkerMode, cfg.Worker.Mode)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)

	t.Run("explicit values win", func(t *testing.T) {
		cfg := &Config{}
		cfg.Server.Port = 9999
		cfg.Log.Level = "debug"
		ApplyDefaults(cfg)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("nil config is a no-op", func(t *testing.T) {
		ApplyDefaults(nil)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad server port", func(c *Config) { c.Server.Port = 0 }},
		{"bad server mode", func(c *Config) { c.Server.Mode = "production" }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"missing db user", func(c *Config) { c.Database.User = "" }},
		{"bad max conns", func(c *Config) { c.Database.MaxConns = 0 }},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"negative redis db", func(c *Config) { c.Redis.DB = -1 }},
		{"bad worker mode", func(c *Config) { c.Worker.Mode = "celery" }},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }},
		{"kafka mode without brokers", func(c *Config) {
			c.Worker.Mode = "kafka"
			c.Kafka.Brokers = nil
		}},
		{"missing minio endpoint", func(c *Config) { c.MinIO.Endpoint = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
  mode: debug
database:
  host: db.internal
  user: app
  db_name: scenedex_prod
worker:
  concurrency: 8
log:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "scenedex_prod", cfg.Database.DBName)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Unset sections fall back to defaults.
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("server:\n  port: -1\n"), 0o644))
		_, err := Load(bad)
		assert.Error(t, err)
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCENEDEX_DATABASE_HOST", "env-db")
	t.Setenv("SCENEDEX_LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}
