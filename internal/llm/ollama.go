package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// OllamaClient talks to Ollama's native API.
type OllamaClient struct {
	baseURL string
	opts    Options
	client  *http.Client
}

// NewOllamaClient creates a client for an Ollama server.
func NewOllamaClient(opts Options) (*OllamaClient, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &OllamaClient{
		baseURL: trimBaseURL(opts.BaseURL),
		opts:    opts,
		client:  newHTTPClient(),
	}, nil
}

type ollamaGenerateRequest struct {
	Model   string             `json:"model"`
	Prompt  string             `json:"prompt"`
	System  string             `json:"system,omitempty"`
	Stream  bool               `json:"stream"`
	Options ollamaSamplingOpts `json:"options"`
}

type ollamaSamplingOpts struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *OllamaClient) Model() string { return c.opts.Model }

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.opts.Model,
		Prompt: prompt,
		System: c.opts.SystemPrompt,
		Stream: false,
		Options: ollamaSamplingOpts{
			Temperature: c.opts.Temperature,
			TopP:        c.opts.TopP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out ollamaGenerateResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.Response == "" {
		return "", upstream(errors.New("ollama: empty response"))
	}
	return out.Response, nil
}

func (c *OllamaClient) Models(ctx context.Context) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out ollamaTagsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// do sends req and decodes a 200 JSON body into out.
func (c *OllamaClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return unreachable(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return upstream(fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return upstream(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
