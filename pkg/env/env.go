// Package env reads typed settings from the environment with fallbacks.
package env

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
)

// LoadDotenv reads .env when present. Real deployments pass plain environment variables.
func LoadDotenv() {
	_ = godotenv.Load()
}

func String(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Int(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Duration accepts Go durations ("750ms") or a bare number of seconds.
func Duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// Database reads the DB_* variables every service shares.
func Database(defaultName string) database.Config {
	return database.Config{
		Host:            String("DB_HOST", "localhost"),
		Port:            String("DB_PORT", "5432"),
		User:            String("DB_USER", "postgres"),
		Password:        String("DB_PASSWORD", "postgres"),
		Name:            String("DB_NAME", defaultName),
		SSLMode:         String("DB_SSLMODE", "disable"),
		MaxOpenConns:    Int("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    Int("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: Duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}
