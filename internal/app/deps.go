package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"doc-qa/internal/config"
	"doc-qa/internal/events"
	"doc-qa/internal/llm"
	"doc-qa/internal/logger"
	"doc-qa/internal/qa"
	"doc-qa/internal/retry"
)

const (
	natsConnectAttempts = 3
	natsConnectBackoff  = 500 * time.Millisecond
)

// Deps bundles common runtime dependencies for the server and the CLI.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	LLM    llm.Client
	Events events.Publisher
	QA     *qa.Service
}

// Close releases connections held by Deps.
func (d Deps) Close() error {
	if d.Events == nil {
		return nil
	}
	return d.Events.Close()
}

// Build loads an optional .env file, the config, and shared components.
// Logs go to stdout.
func Build() (Deps, error) {
	return BuildTo(os.Stdout)
}

// BuildTo is Build with logs written to w.
func BuildTo(w io.Writer) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := config.Load()
	return BuildWith(cfg, logger.NewWithWriter(w, cfg.LogLevel, cfg.LogFormat))
}

// BuildWith assembles Deps from an explicit config and logger.
func BuildWith(cfg config.Config, log *slog.Logger) (Deps, error) {
	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	pub, err := buildEvents(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize events: %w", err)
	}
	return Deps{
		Config: cfg,
		Log:    log,
		LLM:    llmClient,
		Events: pub,
		QA:     qa.NewService(llmClient, pub, log),
	}, nil
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	systemPrompt := cfg.LLMSystemPrompt
	if systemPrompt == "" {
		systemPrompt = llm.DefaultSystemPrompt
	}
	client, err := llm.New(cfg.LLMProvider, llm.Options{
		BaseURL:      cfg.LLMBaseURL(),
		Model:        cfg.LLMModel,
		APIKey:       cfg.LLMAPIKey,
		SystemPrompt: systemPrompt,
		Temperature:  cfg.LLMTemperature,
		TopP:         cfg.LLMTopP,
		Timeout:      cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info("using LLM endpoint", "provider", cfg.LLMProvider, "url", cfg.LLMBaseURL(), "model", cfg.LLMModel)
	return client, nil
}

func buildEvents(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	switch cfg.EventsProvider {
	case "", "none":
		return events.NewNoOpPublisher(), nil
	case "nats":
		if cfg.EventsURL == "" {
			return nil, fmt.Errorf("EVENTS_URL is required when EVENTS_PROVIDER=nats")
		}
		var nc *nats.Conn
		err := retry.Do(context.Background(), natsConnectAttempts, natsConnectBackoff, func() error {
			var err error
			nc, err = nats.Connect(cfg.EventsURL, nats.Name("doc-qa"))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("publishing answer events to NATS", "subject", cfg.EventsSubject)
		return events.NewNATS(log, nc, cfg.EventsSubject), nil
	default:
		return nil, fmt.Errorf("invalid EVENTS_PROVIDER: %s (valid options: none, nats)", cfg.EventsProvider)
	}
}
