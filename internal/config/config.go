// Package config loads the exify service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Config holds the service settings.
type Config struct {
	Port      int
	Root      string // files are served from this directory only
	LogLevel  slog.Level
	LogFormat string // json or text

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	CacheSize int // entries, 0 disables the cache
	CacheTTL  time.Duration

	Warn bool // log recoverable inconsistencies found in files
}

// Load reads the configuration from EXIFY_* environment variables, using
// defaults for the ones that are not set.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port, err = getEnvInt("EXIFY_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("EXIFY_PORT: %d out of range", cfg.Port)
	}

	cfg.Root = getEnvDefault("EXIFY_ROOT", ".")
	if st, err := os.Stat(cfg.Root); err != nil {
		return nil, fmt.Errorf("EXIFY_ROOT: %w", err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("EXIFY_ROOT: %s is not a directory", cfg.Root)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("EXIFY_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("EXIFY_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("EXIFY_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("EXIFY_LOG_FORMAT: invalid format %q, expected json or text", cfg.LogFormat)
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("EXIFY_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("EXIFY_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("EXIFY_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("EXIFY_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.CacheSize, err = getEnvInt("EXIFY_CACHE_SIZE", 512)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("EXIFY_CACHE_SIZE: must not be negative")
	}
	cfg.CacheTTL, err = getEnvDuration("EXIFY_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_CACHE_TTL: %w", err)
	}

	cfg.Warn, err = getEnvBool("EXIFY_WARN", false)
	if err != nil {
		return nil, fmt.Errorf("EXIFY_WARN: %w", err)
	}
	return cfg, nil
}

// SetupLogger installs the default slog logger according to cfg.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use 30s, 15m, 1h)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", val)
	}
	return b, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level %q, expected debug, info, warn or error", level)
	}
}
