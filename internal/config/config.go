package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultModelName = "bharatgenai/Param-1-2.9B-Instruct"

	ReplyExtractionMarker = "marker"
	ReplyExtractionTokens = "tokens"
)

type Config struct {
	// Server
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Model
	ModelName        string
	ModelPrecision   string
	ModelDevice      string
	ModelLoadTimeout time.Duration

	// Runtime (llama-server)
	RuntimeURL     string
	RuntimeTimeout time.Duration

	// Generation
	GenerationConcurrency int
	GenerationTimeout     time.Duration
	ReplyExtraction       string
}

// fileConfig is the optional TOML file layout. Empty fields keep the built-in default.
type fileConfig struct {
	Server struct {
		Port         string `toml:"port"`
		Env          string `toml:"env"`
		ReadTimeout  string `toml:"read_timeout"`
		WriteTimeout string `toml:"write_timeout"`
		IdleTimeout  string `toml:"idle_timeout"`
	} `toml:"server"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Model struct {
		Name        string `toml:"name"`
		Precision   string `toml:"precision"`
		Device      string `toml:"device"`
		LoadTimeout string `toml:"load_timeout"`
	} `toml:"model"`
	Runtime struct {
		URL     string `toml:"url"`
		Timeout string `toml:"timeout"`
	} `toml:"runtime"`
	Generation struct {
		Concurrency     int    `toml:"concurrency"`
		Timeout         string `toml:"timeout"`
		ReplyExtraction string `toml:"reply_extraction"`
	} `toml:"generation"`
}

// Load builds the configuration. Precedence, lowest first: built-in defaults, the TOML file
// named by CONFIG_FILE (default harihar.toml), then the environment (including .env).
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	fc, err := readFile(getEnvOrDefault("CONFIG_FILE", "harihar.toml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:         getEnvOrDefault("PORT", or(fc.Server.Port, "8000")),
		Env:          getEnvOrDefault("ENV", or(fc.Server.Env, "development")),
		ReadTimeout:  getEnvAsDurationOrDefault("SERVER_READ_TIMEOUT", parseDuration(fc.Server.ReadTimeout, 15*time.Second)),
		WriteTimeout: getEnvAsDurationOrDefault("SERVER_WRITE_TIMEOUT", parseDuration(fc.Server.WriteTimeout, 10*time.Minute)),
		IdleTimeout:  getEnvAsDurationOrDefault("SERVER_IDLE_TIMEOUT", parseDuration(fc.Server.IdleTimeout, 60*time.Second)),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", or(fc.Log.Level, "info")),
		LogFormat: getEnvOrDefault("LOG_FORMAT", or(fc.Log.Format, "console")),

		ModelName:        getEnvOrDefault("MODEL_NAME", or(fc.Model.Name, DefaultModelName)),
		ModelPrecision:   getEnvOrDefault("MODEL_PRECISION", or(fc.Model.Precision, "float16")),
		ModelDevice:      getEnvOrDefault("MODEL_DEVICE", or(fc.Model.Device, "auto")),
		ModelLoadTimeout: getEnvAsDurationOrDefault("MODEL_LOAD_TIMEOUT", parseDuration(fc.Model.LoadTimeout, 60*time.Second)),

		RuntimeURL:     getEnvOrDefault("RUNTIME_URL", or(fc.Runtime.URL, "http://127.0.0.1:8080")),
		RuntimeTimeout: getEnvAsDurationOrDefault("RUNTIME_TIMEOUT", parseDuration(fc.Runtime.Timeout, 10*time.Minute)),

		GenerationConcurrency: getEnvAsIntOrDefault("GENERATION_CONCURRENCY", orInt(fc.Generation.Concurrency, 1)),
		GenerationTimeout:     getEnvAsDurationOrDefault("GENERATION_TIMEOUT", parseDuration(fc.Generation.Timeout, 0)),
		ReplyExtraction:       getEnvOrDefault("REPLY_EXTRACTION", or(fc.Generation.ReplyExtraction, ReplyExtractionMarker)),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GenerationConcurrency < 1 {
		return fmt.Errorf("GENERATION_CONCURRENCY must be at least 1, got %d", c.GenerationConcurrency)
	}
	switch c.ReplyExtraction {
	case ReplyExtractionMarker, ReplyExtractionTokens:
	default:
		return fmt.Errorf("REPLY_EXTRACTION must be %q or %q, got %q",
			ReplyExtractionMarker, ReplyExtractionTokens, c.ReplyExtraction)
	}
	return nil
}

func readFile(path string) (*fileConfig, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &fc, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &fc, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	return parseDuration(os.Getenv(key), defaultVal)
}

func parseDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func or(val, defaultVal string) string {
	if val == "" {
		return defaultVal
	}
	return val
}

func orInt(val, defaultVal int) int {
	if val == 0 {
		return defaultVal
	}
	return val
}
