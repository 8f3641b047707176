// Package server provides configuration helpers that define runtime defaults
// and environment-variable parsing for the LAN Share service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection chat message
// rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings.
type Config struct {
	Port            string
	HostIP          string
	StorageDir      string
	StaticDir       string
	AllowedOrigins  []string
	TrustedPrefixes []string
	MaxUploadBytes  int64
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	LogLevel        string
	LogPath         string
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Port:            ":3000",
		StorageDir:      os.TempDir(),
		StaticDir:       "./dist",
		AllowedOrigins:  []string{"*"},
		TrustedPrefixes: []string{"172."},
		MaxUploadBytes:  100 << 20,
		MaxMessageSize:  64 << 10,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		LogLevel: "info",
	}
}

// NewConfigFromEnv creates a Config from environment variables, falling back
// to defaults for anything unset or unparsable.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = normalizePort(port)
	}

	cfg.HostIP = os.Getenv("HOST_IP")

	if dir := os.Getenv("STORAGE_DIR"); dir != "" {
		cfg.StorageDir = dir
	}

	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseList(origins)
	}

	if prefixes := os.Getenv("TRUSTED_PREFIXES"); prefixes != "" {
		cfg.TrustedPrefixes = parseList(prefixes)
	}

	if mb := os.Getenv("MAX_UPLOAD_MB"); mb != "" {
		cfg.MaxUploadBytes = parseMegabytes(mb, cfg.MaxUploadBytes)
	}

	if size := os.Getenv("MAX_MESSAGE_SIZE"); size != "" {
		cfg.MaxMessageSize = parseInt64(size, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseInt(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	cfg.LogPath = os.Getenv("LOG_PATH")

	return &cfg
}

// normalizePort accepts either "3000" or ":3000".
func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseMegabytes(value string, defaultValue int64) int64 {
	if mb, err := strconv.ParseInt(value, 10, 64); err == nil && mb > 0 {
		return mb << 20
	}
	return defaultValue
}

func parseInt64(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseInt(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
