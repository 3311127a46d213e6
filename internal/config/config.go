package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Models     ModelConfig
	Retrieval  RetrievalConfig
	Volatility VolatilityConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// ModelConfig holds the reasoning-model cascade and per-call limits.
type ModelConfig struct {
	Primary     string // reasoning/general tasks
	Numeric     string // math-classified tasks
	Fallbacks   []string
	CallTimeout time.Duration
	MaxTokens   int
	Temperature float32
}

// RetrievalConfig holds retrieval sizing parameters. TopKPinned is set when
// RETRIEVAL_TOP_K was given explicitly: a pinned top-k disables adaptive
// sizing, the same as a caller-supplied count.
type RetrievalConfig struct {
	TopK              int
	TopKPinned        bool
	BaseCount         int
	MaxCount          int
	HighVolMultiplier float64
}

// VolatilityConfig holds volatility estimation parameters.
type VolatilityConfig struct {
	Threshold  float64
	CacheTTL   time.Duration
	WindowDays int
	Index      string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultPrimaryModel = "gpt-4o"
	defaultNumericModel = "gpt-4o-mini"
	defaultCallTimeout  = 60 * time.Second
	defaultMaxTokens    = 4096
	defaultTemperature  = 0.2

	defaultTopK              = 7
	defaultBaseCount         = 5
	defaultMaxCount          = 20
	defaultHighVolMultiplier = 2.0

	defaultVolThreshold = 1.5
	defaultVolCacheTTL  = time.Hour
	defaultVolWindow    = 30
	defaultVolIndex     = "SPY"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Models: ModelConfig{
			Primary:     getEnv("MODEL_PRIMARY", defaultPrimaryModel),
			Numeric:     getEnv("MODEL_NUMERIC", defaultNumericModel),
			Fallbacks:   splitNonEmpty(getEnv("MODEL_FALLBACKS", "gpt-4o-mini")),
			CallTimeout: defaultCallTimeout,
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
		},
		Retrieval: RetrievalConfig{
			TopK:              defaultTopK,
			BaseCount:         defaultBaseCount,
			MaxCount:          defaultMaxCount,
			HighVolMultiplier: defaultHighVolMultiplier,
		},
		Volatility: VolatilityConfig{
			Threshold:  defaultVolThreshold,
			CacheTTL:   defaultVolCacheTTL,
			WindowDays: defaultVolWindow,
			Index:      getEnv("VOLATILITY_INDEX", defaultVolIndex),
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("MODEL_CALL_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MODEL_CALL_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Models.CallTimeout = d
	}

	if v := os.Getenv("RETRIEVAL_TOP_K"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRIEVAL_TOP_K: %w", err)
		}
		cfg.Retrieval.TopK = n
		cfg.Retrieval.TopKPinned = true
	}

	if v := os.Getenv("RETRIEVAL_BASE_COUNT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRIEVAL_BASE_COUNT: %w", err)
		}
		cfg.Retrieval.BaseCount = n
	}

	if v := os.Getenv("RETRIEVAL_MAX_COUNT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRIEVAL_MAX_COUNT: %w", err)
		}
		cfg.Retrieval.MaxCount = n
	}

	if v := os.Getenv("RETRIEVAL_HIGH_VOL_MULTIPLIER"); v != "" {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRIEVAL_HIGH_VOL_MULTIPLIER: %w", err)
		}
		cfg.Retrieval.HighVolMultiplier = f
	}

	if v := os.Getenv("VOLATILITY_THRESHOLD"); v != "" {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VOLATILITY_THRESHOLD: %w", err)
		}
		cfg.Volatility.Threshold = f
	}

	if v := os.Getenv("VOLATILITY_CACHE_TTL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VOLATILITY_CACHE_TTL_SECONDS: %w", err)
		}
		cfg.Volatility.CacheTTL = d
	}

	if v := os.Getenv("VOLATILITY_WINDOW_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VOLATILITY_WINDOW_DAYS: %w", err)
		}
		cfg.Volatility.WindowDays = n
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func parsePositiveFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("must be a positive number")
	}
	return f, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
