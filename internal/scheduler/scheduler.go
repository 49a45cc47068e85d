package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/slack-tldr-bot/internal/enrich"
	"github.com/slack-tldr-bot/internal/models"
	"github.com/slack-tldr-bot/internal/timeref"
)

// digestWindow is how far back the scheduled digest looks
const digestWindow = 24 * time.Hour

// Gateway is the subset of the Slack capability the digest job needs
type Gateway interface {
	BotIdentity(ctx context.Context) (*models.SlackUser, error)
	PostMessage(ctx context.Context, channelID, text string) error
}

// Collector runs the message enrichment pipeline
type Collector interface {
	Collect(ctx context.Context, channelID string, sinceEpoch int64) (*enrich.Result, error)
}

// Summarizer generates the summary text for enriched messages
type Summarizer interface {
	Compose(ctx context.Context, messages []models.EnrichedMessage, requester *models.SlackUser) (string, error)
}

// Scheduler posts a daily TLDR digest of the last 24 hours to the
// configured channels
type Scheduler struct {
	gateway   Gateway
	collector Collector
	composer  Summarizer
	resolver  *timeref.Resolver
	config    models.DigestConfig
	cron      *cron.Cron
	logger    zerolog.Logger
}

// NewScheduler creates a new digest scheduler running in the given location
func NewScheduler(
	gateway Gateway,
	collector Collector,
	composer Summarizer,
	resolver *timeref.Resolver,
	config models.DigestConfig,
	loc *time.Location,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		gateway:   gateway,
		collector: collector,
		composer:  composer,
		resolver:  resolver,
		config:    config,
		cron:      cron.New(cron.WithLocation(loc)),
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the digest job and blocks until the context is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runDigest(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule digest job: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Strs("channels", s.config.Channels).
		Msg("Digest scheduler started")

	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// Stop stops the cron scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runDigest summarizes the last 24 hours for every configured channel.
// A failure in one channel does not stop the others.
func (s *Scheduler) runDigest(ctx context.Context) {
	since := s.resolver.FromEpoch(time.Now().Add(-digestWindow).Unix())

	requester, err := s.gateway.BotIdentity(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to resolve bot identity, skipping digest run")
		return
	}

	for _, channelID := range s.config.Channels {
		if err := s.digestChannel(ctx, channelID, since, requester); err != nil {
			s.logger.Error().
				Err(err).
				Str("channel_id", channelID).
				Msg("Digest failed for channel")
		}
	}
}

func (s *Scheduler) digestChannel(ctx context.Context, channelID string, since timeref.ResolvedInstant, requester *models.SlackUser) error {
	result, err := s.collector.Collect(ctx, channelID, since.Epoch)
	if err != nil {
		return fmt.Errorf("failed to collect messages: %w", err)
	}

	if result.Empty() || len(result.Messages) == 0 {
		s.logger.Info().
			Str("channel_id", channelID).
			Msg("Nothing to digest")
		return nil
	}

	summaryText, err := s.composer.Compose(ctx, result.Messages, requester)
	if err != nil {
		return fmt.Errorf("failed to compose digest: %w", err)
	}

	text := fmt.Sprintf(
		"*TLDR Summary since %s*\n\n%s\n\n_Summarized %d messages_",
		since.Display, summaryText, len(result.Messages),
	)

	if err := s.gateway.PostMessage(ctx, channelID, text); err != nil {
		return err
	}

	s.logger.Info().
		Str("channel_id", channelID).
		Int("message_count", len(result.Messages)).
		Msg("Digest posted")

	return nil
}
