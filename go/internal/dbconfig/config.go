package dbconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	URLValue string
}

// NewConfigFromEnv reads REDIS_URL, or REDIS_* variables when it is unset.
func NewConfigFromEnv() Config {
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		db = 0
	}

	return Config{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		URLValue: os.Getenv("REDIS_URL"),
	}
}

// URL returns the Redis connection URL.
func (c Config) URL() string {
	if c.URLValue != "" {
		return c.URLValue
	}
	if c.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", c.Password, c.Host, c.Port, c.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", c.Host, c.Port, c.DB)
}

// Options parses URL into client options. The DB in the result is the one keyspace
// notifications are read from.
func (c Config) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
