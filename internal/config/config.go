package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// RemoteDriver selects the remote store client: postgres, rest, memory.
	RemoteDriver string
	DatabaseURL  string
	RemoteURL    string
	RemoteKey    string

	// CacheDriver selects the local cache: sqlite, file, memory.
	CacheDriver string
	CachePath   string

	KafkaBrokers []string

	ProbeInterval time.Duration
}

// Load reads .env and the environment. A missing .env file is fine in
// production, so it only warrants a warning.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		RemoteDriver:  getEnv("REMOTE_DRIVER", "memory"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RemoteURL:     getEnv("REMOTE_URL", ""),
		RemoteKey:     getEnv("REMOTE_KEY", ""),
		CacheDriver:   getEnv("CACHE_DRIVER", "sqlite"),
		CachePath:     getEnv("CACHE_PATH", "ledger-cache.db"),
		ProbeInterval: getDuration("PROBE_INTERVAL", 15*time.Second),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", raw)
		return fallback
	}
	return d
}
