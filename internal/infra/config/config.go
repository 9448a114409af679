package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	LogLevel           string
	HTTPAddr           string
	CORSOrigins        []string
	StorageDriver      string
	MongoURI           string
	MongoDB            string
	PostgresDSN        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheTTL           time.Duration
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	FixturesPath       string
	LoadFixtures       bool
	ShutdownTimeout    time.Duration
}

// Load parses configuration from the current environment. Every backing
// service is optional except the one STORAGE_DRIVER selects.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "waiwahost"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "waiwahost-availability"),
		FixturesPath:     getEnv("FIXTURES_PATH", "data/availability.json"),
	}
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"))

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB = redisDB

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"CACHE_TTL", 30 * time.Second, &cfg.CacheTTL},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	loadFixtures, err := parseBoolEnv("LOAD_FIXTURES", true)
	if err != nil {
		return Config{}, err
	}
	cfg.LoadFixtures = loadFixtures

	backoff, err := parseDurationList("RETRY_BACKOFF", getEnv("RETRY_BACKOFF", "1s,5s,30s"))
	if err != nil {
		return Config{}, err
	}
	cfg.RetryBackoff = backoff

	switch cfg.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for STORAGE_DRIVER=mongo")
		}
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required for STORAGE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseDurationList(key, raw string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(raw, ",") {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s component %q: %w", key, part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
