package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8000},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "json"},
		{"ShutdownTimeout", cfg.ShutdownTimeout, 10 * time.Second},
		{"MaxUploadSize", cfg.MaxUploadSize, int64(32 << 20)},
		{"LLMProvider", cfg.LLMProvider, "ollama"},
		{"LLMHost", cfg.LLMHost, "localhost"},
		{"LLMPort", cfg.LLMPort, 11434},
		{"LLMModel", cfg.LLMModel, "llama3"},
		{"LLMTimeout", cfg.LLMTimeout, 120 * time.Second},
		{"LLMTemperature", cfg.LLMTemperature, 0.3},
		{"LLMTopP", cfg.LLMTopP, 0.9},
		{"EventsProvider", cfg.EventsProvider, "none"},
		{"EventsSubject", cfg.EventsSubject, "docqa.answers"},
		{"LLMBaseURL", cfg.LLMBaseURL(), "http://localhost:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_HOST", "gpu-box")
	t.Setenv("LLM_PORT", "8080")
	t.Setenv("LLM_MODEL", "qwen2.5:7b")
	t.Setenv("LLM_TIMEOUT", "45s")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("expected LLM provider 'openai', got %s", cfg.LLMProvider)
	}
	if cfg.LLMModel != "qwen2.5:7b" {
		t.Errorf("expected model 'qwen2.5:7b', got %s", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %s", cfg.LLMTimeout)
	}
	if got := cfg.LLMBaseURL(); got != "http://gpu-box:8080" {
		t.Errorf("expected base url http://gpu-box:8080, got %s", got)
	}
}
