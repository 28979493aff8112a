package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mcdev12/geoduel/go/internal/dbconfig"
	"github.com/mcdev12/geoduel/go/internal/events"
	"github.com/mcdev12/geoduel/go/internal/game"
	"github.com/mcdev12/geoduel/go/internal/guess"
	"github.com/mcdev12/geoduel/go/internal/match"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/mcdev12/geoduel/go/internal/roundtimer"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	backendRedis  = "redis"
	backendMemory = "memory"
)

type Config struct {
	Game      GameConfig       `yaml:"game"`
	Publisher PublisherConfig  `yaml:"publisher"`
	Locations []LocationConfig `yaml:"locations" validate:"dive"`

	Port              string          `yaml:"-" validate:"required,numeric"`
	StoreBackend      string          `yaml:"-" validate:"oneof=redis memory"`
	NatsURL           string          `yaml:"-"`
	GeoDataURL        string          `yaml:"-" validate:"omitempty,url"`
	GeoDataAPIKey     string          `yaml:"-"`
	DataServiceURL    string          `yaml:"-" validate:"omitempty,url"`
	DataServiceAPIKey string          `yaml:"-"`
	ExpirationWorkers int             `yaml:"-" validate:"gte=1"`
	AllowedOrigins    []string        `yaml:"-" validate:"min=1"`
	Redis             dbconfig.Config `yaml:"-"`
}

type GameConfig struct {
	RoundDuration    time.Duration `yaml:"round_duration" validate:"gt=0"`
	FirstGuessWindow time.Duration `yaml:"first_guess_window" validate:"gt=0,ltfield=RoundDuration"`
	EndRoundLockTTL  time.Duration `yaml:"end_round_lock_ttl" validate:"gt=0"`
	GuessTTL         time.Duration `yaml:"guess_ttl" validate:"gt=0"`
	MatchTTL         time.Duration `yaml:"match_ttl" validate:"gt=0"`
	FinalizeTimeout  time.Duration `yaml:"finalize_timeout" validate:"gt=0"`
}

type PublisherConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" validate:"gte=1"`
	BaseDelay       time.Duration `yaml:"base_delay" validate:"gt=0"`
	FallbackTimeout time.Duration `yaml:"fallback_timeout" validate:"gt=0"`
	PublishTimeout  time.Duration `yaml:"publish_timeout" validate:"gt=0"`
}

type LocationConfig struct {
	Name string  `yaml:"name" validate:"required"`
	Lat  float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lng  float64 `yaml:"lng" validate:"gte=-180,lte=180"`
}

func defaultConfig() Config {
	retry := events.DefaultRetryConfig()
	return Config{
		Game: GameConfig{
			RoundDuration:    roundtimer.DefaultRoundDuration,
			FirstGuessWindow: roundtimer.FirstGuessWindow,
			EndRoundLockTTL:  10 * time.Second,
			GuessTTL:         guess.DefaultTTL,
			MatchTTL:         match.DefaultTTL,
			FinalizeTimeout:  game.DefaultFinalizeTimeout,
		},
		Publisher: PublisherConfig{
			MaxAttempts:     retry.MaxAttempts,
			BaseDelay:       retry.BaseDelay,
			FallbackTimeout: retry.FallbackTimeout,
			PublishTimeout:  game.DefaultPublishTimeout,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadConfig reads the optional YAML file at path, applies environment overrides and
// validates the result.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", "8080")
	c.StoreBackend = getEnv("STORE_BACKEND", backendRedis)
	c.NatsURL = os.Getenv("NATS_URL")
	c.GeoDataURL = os.Getenv("GEO_DATA_URL")
	c.GeoDataAPIKey = os.Getenv("GEO_DATA_API_KEY")
	c.DataServiceURL = os.Getenv("DATA_SERVICE_URL")
	c.DataServiceAPIKey = os.Getenv("DATA_SERVICE_API_KEY")
	c.ExpirationWorkers = getEnvAsInt("EXPIRATION_WORKERS", 16)
	c.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	c.Game.RoundDuration = getEnvAsDuration("ROUND_DURATION", c.Game.RoundDuration)
	c.Game.FirstGuessWindow = getEnvAsDuration("FIRST_GUESS_WINDOW", c.Game.FirstGuessWindow)
	c.Redis = dbconfig.NewConfigFromEnv()
}

// FallbackLocations converts the configured list; empty means the built-in list.
func (c *Config) FallbackLocations() []models.Location {
	locations := make([]models.Location, 0, len(c.Locations))
	for _, l := range c.Locations {
		locations = append(locations, models.Location{
			Coordinate: models.NewCoordinate(l.Lat, l.Lng),
			Name:       l.Name,
		})
	}
	return locations
}

func (c *Config) RetryConfig() events.RetryConfig {
	return events.RetryConfig{
		MaxAttempts:     c.Publisher.MaxAttempts,
		BaseDelay:       c.Publisher.BaseDelay,
		FallbackTimeout: c.Publisher.FallbackTimeout,
	}
}
