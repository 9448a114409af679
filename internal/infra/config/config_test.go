package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.True(t, cfg.LoadFixtures)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/waiwahost?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOAD_FIXTURES", "no")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.False(t, cfg.LoadFixtures)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"mongo without uri":  {"STORAGE_DRIVER": "mongo", "MONGO_URI": ""},
		"unknown driver":     {"STORAGE_DRIVER": "sqlite"},
		"bad duration":       {"STORAGE_DRIVER": "memory", "CACHE_TTL": "soon"},
		"bad backoff":        {"STORAGE_DRIVER": "memory", "RETRY_BACKOFF": "1s,x"},
		"bad redis database": {"STORAGE_DRIVER": "memory", "REDIS_DB": "one"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
