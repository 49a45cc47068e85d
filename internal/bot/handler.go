package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-tldr-bot/internal/timeref"
)

// summarizeActionID identifies the "Summarize from here" message shortcut
const summarizeActionID = "summarize_from_here"

// User-facing copy. Rendered only here; no other layer produces it.
const (
	msgUserInfoError = "Error fetching user info. Please try again later."
	msgGenericError  = "Error processing the request. Please try again later."
)

// handleSlashCommand processes the /tldr slash command
func (b *Bot) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to parse slash command")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.logger.Info().
		Str("command", cmd.Command).
		Str("user_id", cmd.UserID).
		Str("channel_id", cmd.ChannelID).
		Str("text", cmd.Text).
		Msg("Received slash command")

	// Ack within Slack's deadline; the summary is delivered through the
	// response URL
	w.WriteHeader(http.StatusOK)

	text := strings.TrimSpace(cmd.Text)
	b.spawn(func(ctx context.Context) {
		since, err := b.resolver.Resolve(text)
		if err != nil {
			var perr *timeref.ParseError
			if errors.As(err, &perr) {
				b.respondText(ctx, cmd.ResponseURL, perr.Help())
				return
			}
			b.respondText(ctx, cmd.ResponseURL, msgGenericError)
			return
		}

		b.runSummary(ctx, cmd.ChannelID, cmd.UserID, cmd.ResponseURL, since)
	})
}

// handleInteraction processes interactive callbacks, currently only the
// "Summarize from here" message shortcut
func (b *Bot) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &callback); err != nil {
		b.logger.Error().Err(err).Msg("Failed to parse interaction payload")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if callback.Type != slack.InteractionTypeMessageAction || callback.CallbackID != summarizeActionID {
		b.logger.Debug().
			Str("type", string(callback.Type)).
			Str("callback_id", callback.CallbackID).
			Msg("Ignoring unrelated interaction")
		w.WriteHeader(http.StatusOK)
		return
	}

	b.logger.Info().
		Str("user_id", callback.User.ID).
		Str("channel_id", callback.Channel.ID).
		Str("message_ts", callback.Message.Timestamp).
		Msg("Received summarize shortcut")

	w.WriteHeader(http.StatusOK)

	channelID := callback.Channel.ID
	userID := callback.User.ID
	responseURL := callback.ResponseURL
	anchorTS := callback.Message.Timestamp

	b.spawn(func(ctx context.Context) {
		// The anchor message's own timestamp is the since-instant; no
		// text parsing is involved
		since, err := b.resolver.FromSlackTS(anchorTS)
		if err != nil {
			b.logger.Error().Err(err).Str("ts", anchorTS).Msg("Invalid anchor timestamp")
			b.respondText(ctx, responseURL, msgGenericError)
			return
		}

		b.runSummary(ctx, channelID, userID, responseURL, since)
	})
}

// runSummary executes the resolve -> enrich -> compose sequence and renders
// every outcome to user-facing text
func (b *Bot) runSummary(ctx context.Context, channelID, userID, responseURL string, since timeref.ResolvedInstant) {
	requester, err := b.users.ResolveUser(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve requesting user")
		b.respondText(ctx, responseURL, msgUserInfoError)
		return
	}

	result, err := b.collector.Collect(ctx, channelID, since.Epoch)
	if err != nil {
		b.logger.Error().Err(err).Str("channel_id", channelID).Msg("Message collection failed")
		b.respondText(ctx, responseURL, msgGenericError)
		return
	}

	if result.Empty() || len(result.Messages) == 0 {
		b.logger.Info().
			Str("channel_id", channelID).
			Int("raw_count", result.RawCount).
			Msg("No summarizable messages in range")
		b.respondText(ctx, responseURL, fmt.Sprintf("No messages found since %s.", since.Display))
		return
	}

	summaryText, err := b.composer.Compose(ctx, result.Messages, requester)
	if err != nil {
		b.logger.Error().Err(err).Str("channel_id", channelID).Msg("Summary generation failed")
		b.respondText(ctx, responseURL, msgGenericError)
		return
	}

	msg := buildSummaryMessage(summaryText, len(result.Messages), since.Display)
	if err := b.responder.Respond(ctx, responseURL, msg); err != nil {
		b.logger.Error().Err(err).Str("channel_id", channelID).Msg("Failed to deliver summary")
	}
}

// buildSummaryMessage renders the summary response: header, mrkdwn body and
// a footer citing message count and range start
func buildSummaryMessage(summaryText string, messageCount int, sinceDisplay string) *slack.WebhookMessage {
	header := fmt.Sprintf("TLDR Summary since %s", sinceDisplay)
	footer := fmt.Sprintf("Summarized %d messages since %s", messageCount, sinceDisplay)

	return &slack.WebhookMessage{
		Text: header,
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewSectionBlock(
					slack.NewTextBlockObject(slack.MarkdownType, "*"+header+"*", false, false),
					nil, nil,
				),
				slack.NewSectionBlock(
					slack.NewTextBlockObject(slack.MarkdownType, summaryText, false, false),
					nil, nil,
				),
				slack.NewContextBlock("",
					slack.NewTextBlockObject(slack.MarkdownType, footer, false, false),
				),
			},
		},
	}
}

// respondText delivers a plain-text response through the response URL
func (b *Bot) respondText(ctx context.Context, responseURL, text string) {
	msg := &slack.WebhookMessage{Text: text}
	if err := b.responder.Respond(ctx, responseURL, msg); err != nil {
		b.logger.Error().Err(err).Msg("Failed to deliver response")
	}
}
