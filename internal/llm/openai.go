package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient is a Completer backed by the OpenAI chat completions API
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewOpenAIClient creates a new OpenAI completion client
func NewOpenAIClient(apiKey string, timeout int, logger zerolog.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		timeout: time.Duration(timeout) * time.Second,
		logger:  logger.With().Str("component", "llm").Str("provider", "openai").Logger(),
	}
}

// Complete generates a chat completion for the given prompts
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	text := resp.Choices[0].Message.Content

	c.logger.Debug().
		Str("model", openai.GPT3Dot5Turbo).
		Int("response_length", len(text)).
		Msg("Completion generated")

	return text, nil
}
