package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	// Server
	Port            int           `env:"PORT" envDefault:"8000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32MB in bytes

	// Inference endpoint
	LLMProvider     string        `env:"LLM_PROVIDER" envDefault:"ollama"` // "ollama" (native API) or "openai" (OpenAI-compatible /v1)
	LLMHost         string        `env:"LLM_HOST" envDefault:"localhost"`
	LLMPort         int           `env:"LLM_PORT" envDefault:"11434"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"llama3"`
	LLMAPIKey       string        `env:"LLM_API_KEY"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	LLMTemperature  float64       `env:"LLM_TEMPERATURE" envDefault:"0.3"`
	LLMTopP         float64       `env:"LLM_TOP_P" envDefault:"0.9"`
	LLMSystemPrompt string        `env:"LLM_SYSTEM_PROMPT"`

	// Answer events
	EventsProvider string `env:"EVENTS_PROVIDER" envDefault:"none"` // "none" or "nats"
	EventsURL      string `env:"EVENTS_URL"`
	EventsSubject  string `env:"EVENTS_SUBJECT" envDefault:"docqa.answers"`
}

// LLMBaseURL is the root URL of the inference server.
func (c Config) LLMBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.LLMHost, c.LLMPort)
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
