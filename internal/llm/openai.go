package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls the Chat Completions API of an OpenAI-compatible local
// server (llama.cpp server, vLLM, LM Studio, Ollama's /v1).
type OpenAIClient struct {
	opts   Options
	client *openai.Client
}

// Local servers usually ignore the key but the SDK always sends one.
const localAPIKey = "sk-local"

// NewOpenAIClient builds a client against opts.BaseURL + "/v1/".
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = localAPIKey
	}
	cli := openai.NewClient(
		option.WithBaseURL(trimBaseURL(opts.BaseURL)+"/v1/"),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(newHTTPClient()),
		option.WithMaxRetries(0),
	)
	return &OpenAIClient{
		opts:   opts,
		client: &cli,
	}, nil
}

func (c *OpenAIClient) Model() string { return c.opts.Model }

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.timeout())
	defer cancel()

	resp, err := c.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.opts.Model),
		Messages:    buildMessages(c.opts.SystemPrompt, prompt),
		Temperature: openai.Float(c.opts.Temperature),
		TopP:        openai.Float(c.opts.TopP),
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", upstream(errors.New("openai: no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Models(ctx context.Context) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.timeout())
	defer cancel()

	page, err := c.client.Models.List(reqCtx)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

// classifyOpenAIError separates HTTP error responses from transport failures.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return upstream(fmt.Errorf("openai error (status %d): %w", apiErr.StatusCode, err))
	}
	return unreachable(err)
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		})
	}
	return append(messages, openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(user),
			},
		},
	})
}
