package slackgw

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-tldr-bot/internal/models"
)

// Client wraps the Slack Web API behind the capabilities the rest of the
// bot depends on. It is stateless and safe for concurrent use.
type Client struct {
	api    *slack.Client
	logger zerolog.Logger
}

// NewClient creates a new Slack gateway client
func NewClient(token string, logger zerolog.Logger) *Client {
	return &Client{
		api:    slack.New(token),
		logger: logger.With().Str("component", "slackgw").Logger(),
	}
}

// ResolveUser resolves a user ID via users.info
func (c *Client) ResolveUser(ctx context.Context, userID string) (*models.SlackUser, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info for %s: %w", userID, err)
	}

	return &models.SlackUser{
		ID:       user.ID,
		Name:     user.Name,
		RealName: user.RealName,
	}, nil
}

// ListMessages fetches channel history since the given epoch, oldest first
func (c *Client) ListMessages(ctx context.Context, channelID string, sinceEpoch int64, limit int) ([]models.RawMessage, error) {
	history, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    strconv.FormatInt(sinceEpoch, 10),
		Limit:     limit,
		Inclusive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel history: %w", err)
	}

	// Slack returns newest first; reverse into arrival order
	messages := make([]models.RawMessage, 0, len(history.Messages))
	for i := len(history.Messages) - 1; i >= 0; i-- {
		msg := history.Messages[i]
		messages = append(messages, models.RawMessage{
			UserID:    msg.User,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})
	}

	c.logger.Debug().
		Str("channel_id", channelID).
		Int64("since_epoch", sinceEpoch).
		Int("count", len(messages)).
		Msg("Fetched channel history")

	return messages, nil
}

// PostMessage posts a mrkdwn message to a channel
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to %s: %w", channelID, err)
	}
	return nil
}

// Respond delivers a message through a trigger's response URL
func (c *Client) Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error {
	if err := slack.PostWebhookContext(ctx, responseURL, msg); err != nil {
		return fmt.Errorf("failed to post to response URL: %w", err)
	}
	return nil
}

// BotIdentity returns the identity the bot token is authenticated as
func (c *Client) BotIdentity(ctx context.Context) (*models.SlackUser, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth.test failed: %w", err)
	}

	return &models.SlackUser{
		ID:   resp.UserID,
		Name: resp.User,
	}, nil
}
