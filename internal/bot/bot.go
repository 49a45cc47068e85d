package bot

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-tldr-bot/internal/enrich"
	"github.com/slack-tldr-bot/internal/models"
	"github.com/slack-tldr-bot/internal/timeref"
)

// requestTimeout bounds one summary request end to end, measured from the
// moment the trigger is acknowledged
const requestTimeout = 2 * time.Minute

// UserResolver resolves the requesting user's identity
type UserResolver interface {
	ResolveUser(ctx context.Context, userID string) (*models.SlackUser, error)
}

// Collector runs the message enrichment pipeline
type Collector interface {
	Collect(ctx context.Context, channelID string, sinceEpoch int64) (*enrich.Result, error)
}

// Summarizer generates the summary text for enriched messages
type Summarizer interface {
	Compose(ctx context.Context, messages []models.EnrichedMessage, requester *models.SlackUser) (string, error)
}

// Responder delivers responses through a trigger's response URL
type Responder interface {
	Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error
}

// Bot wires the Slack inbound surface to the summary flow
type Bot struct {
	config    *models.BotConfig
	resolver  *timeref.Resolver
	users     UserResolver
	collector Collector
	composer  Summarizer
	responder Responder
	logger    zerolog.Logger
	server    *http.Server
	wg        sync.WaitGroup // Tracks active handlers for graceful shutdown
}

// New creates a new bot instance
func New(
	config *models.BotConfig,
	resolver *timeref.Resolver,
	users UserResolver,
	collector Collector,
	composer Summarizer,
	responder Responder,
	logger zerolog.Logger,
) *Bot {
	b := &Bot{
		config:    config,
		resolver:  resolver,
		users:     users,
		collector: collector,
		composer:  composer,
		responder: responder,
		logger:    logger.With().Str("component", "bot").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/slack/commands", b.verifySignature(b.handleSlashCommand))
	mux.HandleFunc("/slack/interactions", b.verifySignature(b.handleInteraction))

	b.server = &http.Server{
		Addr:    config.ListenAddr,
		Handler: mux,
	}

	return b
}

// Start runs the HTTP server until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		b.logger.Info().Str("addr", b.config.ListenAddr).Msg("Listening for Slack events")
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		b.logger.Info().Msg("Shutting down bot...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return b.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Stop waits for active handlers to complete
func (b *Bot) Stop() {
	b.logger.Info().Msg("Waiting for active handlers to complete...")
	b.wg.Wait()
	b.logger.Info().Msg("All handlers completed")
}

// spawn runs fn in a tracked goroutine with panic recovery and a bounded
// request context
func (b *Bot) spawn(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		b.recoverMiddleware(func() {
			fn(ctx)
		})
	}()
}
