package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"doc-qa/internal/apperr"
)

// Providers understood by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// DefaultSystemPrompt instructs the model to stay within the supplied documents.
const DefaultSystemPrompt = "You answer questions about the documents provided in the prompt. " +
	"Base the answer only on their content and say so when they do not contain the answer."

const defaultTimeout = 120 * time.Second

// Client is a minimal LLM interface to allow pluggable local inference servers.
type Client interface {
	// Generate sends prompt in a single non-streaming call and returns the complete answer.
	Generate(ctx context.Context, prompt string) (string, error)
	// Models lists the models the endpoint currently serves.
	Models(ctx context.Context) ([]string, error)
	// Model is the model name requested on every Generate call.
	Model() string
}

// Options configures a Client. BaseURL is the server root, e.g. http://localhost:11434.
type Options struct {
	BaseURL      string
	Model        string
	APIKey       string
	SystemPrompt string
	Temperature  float64
	TopP         float64
	Timeout      time.Duration
}

func (o Options) validate() error {
	if o.BaseURL == "" {
		return errors.New("base url required")
	}
	if o.Model == "" {
		return errors.New("model required")
	}
	return nil
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultTimeout
	}
	return o.Timeout
}

// New builds the client for provider.
func New(provider string, opts Options) (Client, error) {
	switch provider {
	case ProviderOllama:
		return NewOllamaClient(opts)
	case ProviderOpenAI:
		return NewOpenAIClient(opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (valid: %s, %s)", provider, ProviderOllama, ProviderOpenAI)
	}
}

// newHTTPClient returns a pooled client with no overall timeout; every call
// carries its own context deadline.
func newHTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 16
	return &http.Client{Transport: tr}
}

func trimBaseURL(u string) string {
	return strings.TrimRight(u, "/")
}

func unreachable(err error) error {
	return &apperr.InferenceUnavailableError{Cause: err, Unreachable: true}
}

func upstream(err error) error {
	return &apperr.InferenceUnavailableError{Cause: err}
}
