package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration
type Config struct {
	// Required variables
	Port string

	// Optional variables with defaults
	GoEnv           string
	LogLevel        string
	DevelopmentMode bool
	AllowedOrigins  string

	// Whiteboard pipeline knobs
	ClearCooldown     time.Duration
	MaxEventsPerRoom  int
	MaxEventSizeBytes int64
	MaxPointsPerEvent int
	RoomIdleTTL       time.Duration

	// Heartbeat (optional liveness ping)
	HeartbeatEnabled  bool
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// Redis (optional; backs the rate limiter store and readiness check)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	// Rate Limits (format: "<count>-<period>", M = Minute, H = Hour)
	RateLimitAPIGlobal string
	RateLimitAPIRooms  string
	RateLimitAPIEvents string
	RateLimitWsIP      string

	// Tracing
	OTLPEndpoint string
}

// ValidateEnv validates all required environment variables and returns a Config object.
// Returns an error if any required variable is missing or invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errs = append(errs, "PORT is required")
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Pipeline knobs
	cfg.ClearCooldown = envDurationMs("CLEAR_COOLDOWN_MS", 1000, &errs)
	cfg.MaxEventsPerRoom = envInt("MAX_EVENTS_PER_ROOM", 10000, &errs)
	cfg.MaxEventSizeBytes = int64(envInt("MAX_EVENT_SIZE_BYTES", 100*1024, &errs))
	cfg.MaxPointsPerEvent = envInt("MAX_POINTS_PER_EVENT", 1000, &errs)
	cfg.RoomIdleTTL = envDuration("ROOM_IDLE_TTL", 0, &errs)

	// Heartbeat
	cfg.HeartbeatEnabled = os.Getenv("HEARTBEAT_ENABLED") != "false"
	cfg.HeartbeatInterval = envDuration("HEARTBEAT_INTERVAL", 30*time.Second, &errs)
	cfg.HeartbeatTimeout = envDuration("HEARTBEAT_TIMEOUT", 10*time.Second, &errs)

	// Conditional: REDIS_ADDR (required if REDIS_ENABLED=true)
	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			// Default to localhost:6379 if not specified
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("REDIS_ADDR not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errs = append(errs, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	// Rate Limits
	cfg.RateLimitAPIGlobal = getEnvOrDefault("RATE_LIMIT_API_GLOBAL", "1000-M")
	cfg.RateLimitAPIRooms = getEnvOrDefault("RATE_LIMIT_API_ROOMS", "100-M")
	cfg.RateLimitAPIEvents = getEnvOrDefault("RATE_LIMIT_API_EVENTS", "500-M")
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "100-M")

	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// ParseAllowedOrigins splits a comma-separated origins value, falling back to
// the given defaults when empty.
func ParseAllowedOrigins(value string, fallback []string) []string {
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return fallback
	}
	return origins
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	if parts[0] == "" {
		return false
	}

	return true
}

func envInt(key string, def int, errs *[]string) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a non-negative integer (got '%s')", key, raw))
		return def
	}
	return v
}

func envDurationMs(key string, defMs int, errs *[]string) time.Duration {
	return time.Duration(envInt(key, defMs, errs)) * time.Millisecond
}

func envDuration(key string, def time.Duration, errs *[]string) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a non-negative duration like '30s' (got '%s')", key, raw))
		return def
	}
	return d
}

// logValidatedConfig logs the validated configuration
func logValidatedConfig(cfg *Config) {
	slog.Info("✅ Environment configuration validated successfully")
	slog.Info("Configuration",
		"port", cfg.Port,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"development_mode", cfg.DevelopmentMode,
		"clear_cooldown", cfg.ClearCooldown,
		"max_events_per_room", cfg.MaxEventsPerRoom,
		"max_event_size_bytes", cfg.MaxEventSizeBytes,
		"max_points_per_event", cfg.MaxPointsPerEvent,
		"room_idle_ttl", cfg.RoomIdleTTL,
		"heartbeat_enabled", cfg.HeartbeatEnabled,
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"rate_limit_api_global", cfg.RateLimitAPIGlobal,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
