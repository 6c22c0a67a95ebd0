package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full pipeline configuration, read from the environment
// exactly once in Load and passed by value from then on. Tests construct
// Config literals directly; nothing below reads the environment after Load
// returns.
type Config struct {
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	APIKey         string
	DiscoverPerMin int

	CDPBaseURL string

	AntibotEnabled  bool
	StealthViewport Viewport
	StealthLocale   string
	StealthTimezone string
	SessionStateTTL time.Duration

	HumanizeMode string
	HumanizeSeed int64

	ReadinessAttempts       int
	ReadinessAttemptTimeout time.Duration
	ReadinessMinRows        int

	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string

	FeedBackend string
	PostgresDSN string

	ExtractorEndpoint string
	ExtractorToken    string
	ExtractorModel    string
	ExtractorTimeout  time.Duration
}

type Viewport struct {
	Width  int
	Height int
}

func Load() Config {
	return Config{
		HTTPAddr:       envOrDefault("PIPELINE_HTTP_ADDR", ":8080"),
		ReadTimeout:    durationOrDefault("PIPELINE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   durationOrDefault("PIPELINE_WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:    durationOrDefault("PIPELINE_IDLE_TIMEOUT", 60*time.Second),
		APIKey:         envOrDefault("PIPELINE_API_KEY", ""),
		DiscoverPerMin: intOrDefault("PIPELINE_DISCOVER_PER_MIN", 12),

		CDPBaseURL: envOrDefault("PIPELINE_CDP_BASE_URL", "http://127.0.0.1:9222"),

		AntibotEnabled:  boolOrDefault("ANTIBOT_ENABLED", false),
		StealthViewport: Viewport{Width: 1920, Height: 1080},
		StealthLocale:   envOrDefault("PIPELINE_STEALTH_LOCALE", "en-US"),
		StealthTimezone: envOrDefault("PIPELINE_STEALTH_TIMEZONE", "America/Denver"),
		SessionStateTTL: durationOrDefault("PIPELINE_SESSION_STATE_TTL", 15*time.Minute),

		HumanizeMode: envOrDefault("PIPELINE_HUMANIZE_MODE", "balanced"),
		HumanizeSeed: int64OrDefault("PIPELINE_HUMANIZE_SEED", 0),

		ReadinessAttempts:       intOrDefault("PIPELINE_READINESS_ATTEMPTS", 2),
		ReadinessAttemptTimeout: durationOrDefault("PIPELINE_READINESS_ATTEMPT_TIMEOUT", 12*time.Second),
		ReadinessMinRows:        intOrDefault("PIPELINE_READINESS_MIN_ROWS", 3),

		CacheBackend: envOrDefault("PIPELINE_CACHE_BACKEND", "memory"),
		CacheTTL:     durationOrDefault("PIPELINE_CACHE_TTL", 6*time.Hour),
		RedisAddr:    envOrDefault("REDIS_ADDR", "redis:6379"),

		FeedBackend: envOrDefault("PIPELINE_FEED_BACKEND", "memory"),
		PostgresDSN: envOrDefault("POSTGRES_DSN", ""),

		ExtractorEndpoint: envOrDefault("PIPELINE_EXTRACTOR_ENDPOINT", ""),
		ExtractorToken:    envOrDefault("PIPELINE_EXTRACTOR_TOKEN", ""),
		ExtractorModel:    envOrDefault("PIPELINE_EXTRACTOR_MODEL", ""),
		ExtractorTimeout:  durationOrDefault("PIPELINE_EXTRACTOR_TIMEOUT", 45*time.Second),
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func intOrDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func int64OrDefault(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func boolOrDefault(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
