package llm

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-tldr-bot/internal/models"
	"github.com/slack-tldr-bot/internal/summary"
)

// NewCompleter constructs the completion client selected by configuration
func NewCompleter(cfg *models.BotConfig, logger zerolog.Logger) (summary.Completer, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.LLMTimeout, logger), nil
	case "gemini":
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.LLMTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
