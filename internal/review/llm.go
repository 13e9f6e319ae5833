package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/agentic-research/devsentinel/internal/config"
	"github.com/sashabaranov/go-openai"
)

// Prompt is one chat completion request.
type Prompt struct {
	System string
	User   string
	// JSON asks the model for a JSON object response.
	JSON bool
}

// Completer sends a prompt to a language model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// ErrEmptyCompletion is returned when the model sends back no choices.
var ErrEmptyCompletion = errors.New("empty completion")

// OpenAICompleter talks to any OpenAI-compatible chat endpoint, Groq by
// default.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter builds a completer from the LLM settings.
func NewOpenAICompleter(cfg config.LLMConfig) *OpenAICompleter {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

// Model returns the model name requests are sent to.
func (c *OpenAICompleter) Model() string {
	return c.model
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
	}
	if p.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
