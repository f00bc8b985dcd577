package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{"parses duration", "90s", 90 * time.Second},
		{"uses default for empty", "", time.Minute},
		{"uses default for garbage", "soon", time.Minute},
		{"uses default for negative", "-5s", time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tc.envValue)

			result := getEnvAsDurationOrDefault("TEST_DURATION", time.Minute)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func isolate(t *testing.T) {
	t.Helper()
	// Run from an empty directory so a developer's .env or harihar.toml is not picked up.
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	for _, key := range []string{
		"CONFIG_FILE", "PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT", "MODEL_NAME", "MODEL_PRECISION",
		"MODEL_DEVICE", "MODEL_LOAD_TIMEOUT", "RUNTIME_URL", "RUNTIME_TIMEOUT",
		"GENERATION_CONCURRENCY", "GENERATION_TIMEOUT", "REPLY_EXTRACTION",
		"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected port 8000, got %q", cfg.Port)
	}
	if cfg.ModelName != DefaultModelName {
		t.Errorf("Expected model %q, got %q", DefaultModelName, cfg.ModelName)
	}
	if cfg.ModelPrecision != "float16" || cfg.ModelDevice != "auto" {
		t.Errorf("Expected float16/auto, got %s/%s", cfg.ModelPrecision, cfg.ModelDevice)
	}
	if cfg.GenerationConcurrency != 1 {
		t.Errorf("Expected concurrency 1, got %d", cfg.GenerationConcurrency)
	}
	if cfg.GenerationTimeout != 0 {
		t.Errorf("Expected no generation timeout, got %v", cfg.GenerationTimeout)
	}
	if cfg.ReplyExtraction != ReplyExtractionMarker {
		t.Errorf("Expected marker extraction, got %q", cfg.ReplyExtraction)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[server]
port = "9000"

[model]
name = "local/tiny"
load_timeout = "5s"

[generation]
concurrency = 2
reply_extraction = "tokens"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("Expected env to override file port, got %q", cfg.Port)
	}
	if cfg.ModelName != "local/tiny" {
		t.Errorf("Expected model from file, got %q", cfg.ModelName)
	}
	if cfg.ModelLoadTimeout != 5*time.Second {
		t.Errorf("Expected 5s load timeout, got %v", cfg.ModelLoadTimeout)
	}
	if cfg.GenerationConcurrency != 2 {
		t.Errorf("Expected concurrency 2, got %d", cfg.GenerationConcurrency)
	}
	if cfg.ReplyExtraction != ReplyExtractionTokens {
		t.Errorf("Expected tokens extraction, got %q", cfg.ReplyExtraction)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero concurrency", "GENERATION_CONCURRENCY", "0"},
		{"unknown extraction", "REPLY_EXTRACTION", "regex"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tc.key, tc.val)

			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nport ="), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Error("Expected error for malformed config file")
	}
}
