package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hray3182/planbot/internal/format"
	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DataDir       string
	DatabaseURI   string

	DefaultTimezone   string
	PollInterval      time.Duration
	DigestTime        format.Clock
	RateLimitCooldown time.Duration
	MaxPlansPerUser   int
	ShutdownGrace     time.Duration

	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	MetricsAddr string
	LogLevel    slog.Level
}

// Load reads the configuration from the environment, after loading an
// optional .env file. Missing and malformed values are reported together.
func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:     strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DataDir:           getEnvOrDefault("DATA_DIR", "data"),
		DatabaseURI:       strings.TrimSpace(os.Getenv("DATABASE_URI")),
		DefaultTimezone:   getEnvOrDefault("DEFAULT_TIMEZONE", "Europe/Moscow"),
		PollInterval:      time.Minute,
		DigestTime:        format.Clock{Hour: 8, Minute: 0},
		RateLimitCooldown: 500 * time.Millisecond,
		MaxPlansPerUser:   200,
		ShutdownGrace:     2 * time.Second,
		AIAPIKey:          strings.TrimSpace(os.Getenv("AI_API_KEY")),
		AIBaseURL:         getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:           getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),
		MetricsAddr:       strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		LogLevel:          slog.LevelInfo,
	}

	var missing, invalid []string
	if cfg.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}

	durations := []struct {
		key       string
		dst       *time.Duration
		allowZero bool
	}{
		{"POLL_INTERVAL", &cfg.PollInterval, false},
		{"RATE_LIMIT_COOLDOWN", &cfg.RateLimitCooldown, true},
		{"SHUTDOWN_GRACE", &cfg.ShutdownGrace, true},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || (parsed == 0 && !d.allowZero) {
			invalid = append(invalid, d.key)
			continue
		}
		*d.dst = parsed
	}

	if v := strings.TrimSpace(os.Getenv("DIGEST_TIME")); v != "" {
		if clock, ok := format.ParseClock(v); ok {
			cfg.DigestTime = clock
		} else {
			invalid = append(invalid, "DIGEST_TIME")
		}
	}

	if v := strings.TrimSpace(os.Getenv("MAX_PLANS_PER_USER")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			invalid = append(invalid, "MAX_PLANS_PER_USER")
		} else {
			cfg.MaxPlansPerUser = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, "LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// AIEnabled reports whether the LLM date parser is configured.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
