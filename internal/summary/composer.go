package summary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-tldr-bot/internal/models"
)

// maxSummarySentences bounds the length of the generated summary
const maxSummarySentences = 5

// ErrEmptyTranscript is returned when Compose is called without messages.
// The model is never invoked in that case.
var ErrEmptyTranscript = errors.New("no messages to summarize")

// Completer is the language-model capability the composer depends on
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Composer builds summary prompts, invokes the completion capability and
// rewrites author names in the output into canonical Slack mentions
type Composer struct {
	completer Completer
	maxTokens int
	logger    zerolog.Logger
}

// NewComposer creates a new summary composer
func NewComposer(completer Completer, maxTokens int, logger zerolog.Logger) *Composer {
	return &Composer{
		completer: completer,
		maxTokens: maxTokens,
		logger:    logger.With().Str("component", "summary").Logger(),
	}
}

// Compose generates a summary of the given messages for the requesting user
func (c *Composer) Compose(ctx context.Context, messages []models.EnrichedMessage, requester *models.SlackUser) (string, error) {
	if len(messages) == 0 {
		return "", ErrEmptyTranscript
	}

	systemPrompt := buildSystemPrompt()
	userPrompt := buildUserPrompt(messages, requester)

	c.logger.Debug().
		Str("requester_id", requester.ID).
		Int("message_count", len(messages)).
		Int("prompt_length", len(userPrompt)).
		Msg("Sending summary request to LLM")

	text, err := c.completer.Complete(ctx, systemPrompt, userPrompt, c.maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	text = substituteMentions(text, messages)

	c.logger.Info().
		Str("requester_id", requester.ID).
		Int("message_count", len(messages)).
		Int("summary_length", len(text)).
		Msg("Summary generated successfully")

	return text, nil
}

// buildSystemPrompt returns the instruction fixed for the whole service
func buildSystemPrompt() string {
	return fmt.Sprintf(
		"You are a helpful assistant that creates TLDR summaries of conversations.\n"+
			"Summarize the conversation in at most %d short sentences, capturing the key points. "+
			"Keep it as short as possible while keeping the important parts.\n"+
			"Use plain sentences, no bullet points or lists.\n"+
			"When mentioning participants, always use their username format.\n"+
			"Do not invent anything that is not present in the messages.\n"+
			"End with one sentence stating what in the conversation is personally relevant to the requesting user.",
		maxSummarySentences,
	)
}

// buildUserPrompt embeds the requester and the rendered transcript
func buildUserPrompt(messages []models.EnrichedMessage, requester *models.SlackUser) string {
	var sb strings.Builder

	sb.WriteString("The user ")
	sb.WriteString(requester.DisplayName())
	sb.WriteString(" has requested a summary of the following Slack messages: <SLACK MESSAGES>\n\n")

	for i, msg := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprintf("[%s]: %s", msg.DisplayName, msg.Text))
	}

	sb.WriteString("\n\n</SLACK MESSAGES>")

	return sb.String()
}

// substituteMentions replaces every whole-word, case-insensitive occurrence
// of an author's display name with the canonical <@UID> mention. One rule
// per distinct display name; if two authors share a name the later one in
// the transcript wins.
func substituteMentions(text string, messages []models.EnrichedMessage) string {
	byName := make(map[string]string, len(messages))
	for _, msg := range messages {
		byName[msg.DisplayName] = msg.UserID
	}

	for name, userID := range byName {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			continue
		}
		text = pattern.ReplaceAllString(text, "<@"+userID+">")
	}

	return text
}
