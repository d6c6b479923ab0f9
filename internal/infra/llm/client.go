package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is Moonshot's OpenAI-compatible endpoint
	DefaultBaseURL = "https://api.moonshot.cn/v1"
	DefaultModel   = "moonshot-v1-8k"

	requestTimeout = 30 * time.Second
)

// Client is a chat completion client for any OpenAI-compatible API
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new client, nil when apiKey is empty
func NewClient(apiKey, model, baseURL string) *Client {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Model returns the model name used for completions
func (c *Client) Model() string {
	return c.model
}

// Chat sends a system and user message and returns the first choice
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: 0.1,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}
