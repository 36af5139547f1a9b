/*
Package llm produces the two qualitative analyses of an example: intent
analysis and comprehensive assessment.

The completion service is reached through the Client interface. Responses are
never trusted to be valid JSON: every response passes through Extractor,
which always yields a Payload that is either a JSON object or a degraded
error object carrying the raw text.
*/
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// Client returns the generated text for a request.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ErrNoChoices is returned when the service answers without any generated content.
var ErrNoChoices = errors.New("completion returned no choices")

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client. An empty baseURL uses the public OpenAI endpoint.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}, nil
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	chat := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// disabledClient fails every call; it backs an Analyzer when analysis is turned off.
type disabledClient struct{}

// ErrDisabled is the degradation reason when no completion service is configured.
var ErrDisabled = errors.New("llm analysis disabled")

func (disabledClient) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrDisabled
}
