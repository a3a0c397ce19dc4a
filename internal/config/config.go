package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Build flags expected by the Python gRPC toolchain when linking against
// system OpenSSL/zlib. Set in the process environment so child builds
// inherit them.
const (
	grpcBuildOpenSSLVar = "GRPC_PYTHON_BUILD_SYSTEM_OPENSSL"
	grpcBuildZlibVar    = "GRPC_PYTHON_BUILD_SYSTEM_ZLIB"
)

// GeminiKeyVars is the fixed, ordered set of environment variables that may
// hold a Gemini API key. Enumerated rather than assembled from an index so
// the recognized names are statically visible.
var GeminiKeyVars = [10]string{
	"GEMINI_API_KEY_1",
	"GEMINI_API_KEY_2",
	"GEMINI_API_KEY_3",
	"GEMINI_API_KEY_4",
	"GEMINI_API_KEY_5",
	"GEMINI_API_KEY_6",
	"GEMINI_API_KEY_7",
	"GEMINI_API_KEY_8",
	"GEMINI_API_KEY_9",
	"GEMINI_API_KEY_10",
}

// ErrNoGeminiKeys is returned when none of the recognized key variables holds
// a non-empty value.
var ErrNoGeminiKeys = errors.New("no Gemini API keys found: set at least one of GEMINI_API_KEY_1..GEMINI_API_KEY_10")

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	OutputDir   string `env:"OUTPUT_DIR" default:"json"`
	TicketsFile string `env:"TICKETS_FILE" default:"tickets.json"`

	MaxRetries         int           `env:"MAX_RETRIES" default:"10"`
	RetryDelay         time.Duration `env:"RETRY_DELAY" default:"5s"`
	MaxParallelTickets int           `env:"MAX_PARALLEL_TICKETS" default:"3"`
	SaveInterval       int           `env:"SAVE_INTERVAL" default:"3"`
	MinMessageLength   int           `env:"MIN_MESSAGE_LENGTH" default:"1"`

	APICallLimit int    `env:"API_CALL_LIMIT" default:"10"`
	GeminiModel  string `env:"GEMINI_MODEL" default:"gemini-1.5-pro"`
}

// Load reads .env (if present), maps environment variables into a Config, and
// validates it. A missing .env file is not an error here: the pipeline can run
// entirely off the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if len(cfg.GeminiAPIKeys()) == 0 {
		return ErrNoGeminiKeys
	}
	if cfg.MaxRetries < 1 {
		return errors.New("MAX_RETRIES must be at least 1")
	}
	if cfg.MaxParallelTickets < 1 {
		return errors.New("MAX_PARALLEL_TICKETS must be at least 1")
	}
	if cfg.SaveInterval < 1 {
		return errors.New("SAVE_INTERVAL must be at least 1")
	}
	if cfg.APICallLimit < 1 {
		return errors.New("API_CALL_LIMIT must be at least 1")
	}
	return nil
}

// GeminiAPIKeys returns the configured API keys in variable order, skipping
// variables that are unset or empty. Any non-empty value counts; values are
// not trimmed or otherwise inspected.
func (c *Config) GeminiAPIKeys() []string {
	var keys []string
	for _, name := range GeminiKeyVars {
		if v := os.Getenv(name); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}

// CountGeminiKeys reports how many of the recognized key variables hold a
// non-empty value in the current process environment.
func CountGeminiKeys() int {
	count := 0
	for _, name := range GeminiKeyVars {
		if os.Getenv(name) != "" {
			count++
		}
	}
	return count
}

// ApplyGRPCBuildEnv sets the two gRPC build flags in the process environment.
func ApplyGRPCBuildEnv() error {
	if err := os.Setenv(grpcBuildOpenSSLVar, "1"); err != nil {
		return fmt.Errorf("failed to set %s: %w", grpcBuildOpenSSLVar, err)
	}
	if err := os.Setenv(grpcBuildZlibVar, "1"); err != nil {
		return fmt.Errorf("failed to set %s: %w", grpcBuildZlibVar, err)
	}
	return nil
}
