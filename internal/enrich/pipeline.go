package enrich

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/slack-tldr-bot/internal/models"
)

// Gateway is the messaging-platform capability the pipeline depends on
type Gateway interface {
	// ResolveUser resolves a user ID to a workspace member
	ResolveUser(ctx context.Context, userID string) (*models.SlackUser, error)
	// ListMessages returns channel messages with timestamp >= sinceEpoch,
	// oldest first, up to limit
	ListMessages(ctx context.Context, channelID string, sinceEpoch int64, limit int) ([]models.RawMessage, error)
}

// Result is the outcome of one collection run. RawCount distinguishes an
// empty channel range from a range whose every message was dropped during
// enrichment.
type Result struct {
	Messages []models.EnrichedMessage
	RawCount int
}

// Empty reports whether the channel had no messages at all in the range
func (r *Result) Empty() bool {
	return r.RawCount == 0
}

// Pipeline fetches channel history and attaches resolved author identities.
// Messages without an author, or whose author cannot be resolved, are
// dropped from the result.
type Pipeline struct {
	gateway  Gateway
	limit    int
	failOpen bool
	logger   zerolog.Logger
}

// NewPipeline creates a new enrichment pipeline. When failOpen is true a
// failed history fetch is treated as an empty channel range instead of an
// error.
func NewPipeline(gateway Gateway, limit int, failOpen bool, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		gateway:  gateway,
		limit:    limit,
		failOpen: failOpen,
		logger:   logger.With().Str("component", "enrich").Logger(),
	}
}

// Collect fetches messages since sinceEpoch and enriches them with author
// identities. Surviving messages keep their original arrival order.
func (p *Pipeline) Collect(ctx context.Context, channelID string, sinceEpoch int64) (*Result, error) {
	raw, err := p.gateway.ListMessages(ctx, channelID, sinceEpoch, p.limit)
	if err != nil {
		if !p.failOpen {
			return nil, fmt.Errorf("failed to fetch channel history: %w", err)
		}
		p.logger.Error().
			Err(err).
			Str("channel_id", channelID).
			Msg("History fetch failed, treating as empty")
		raw = nil
	}

	if len(raw) == 0 {
		return &Result{RawCount: 0}, nil
	}

	p.logger.Debug().
		Str("channel_id", channelID).
		Int64("since_epoch", sinceEpoch).
		Int("raw_count", len(raw)).
		Msg("Resolving message authors")

	// Parallel map into pre-sized slots so that lookup completion order
	// cannot reorder the output
	slots := make([]*models.EnrichedMessage, len(raw))
	var wg sync.WaitGroup

	for i, msg := range raw {
		if msg.UserID == "" {
			continue
		}

		wg.Add(1)
		go func(i int, msg models.RawMessage) {
			defer wg.Done()

			user, err := p.gateway.ResolveUser(ctx, msg.UserID)
			if err != nil {
				p.logger.Debug().
					Err(err).
					Str("user_id", msg.UserID).
					Msg("Dropping message with unresolvable author")
				return
			}

			slots[i] = &models.EnrichedMessage{
				DisplayName: user.DisplayName(),
				UserID:      user.ID,
				Text:        msg.Text,
				Timestamp:   msg.Timestamp,
			}
		}(i, msg)
	}

	wg.Wait()

	enriched := make([]models.EnrichedMessage, 0, len(raw))
	for _, slot := range slots {
		if slot != nil {
			enriched = append(enriched, *slot)
		}
	}

	p.logger.Info().
		Str("channel_id", channelID).
		Int("raw_count", len(raw)).
		Int("enriched_count", len(enriched)).
		Msg("Message enrichment completed")

	return &Result{Messages: enriched, RawCount: len(raw)}, nil
}
