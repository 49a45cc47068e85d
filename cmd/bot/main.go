package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/slack-tldr-bot/internal/bot"
	"github.com/slack-tldr-bot/internal/config"
	"github.com/slack-tldr-bot/internal/enrich"
	"github.com/slack-tldr-bot/internal/llm"
	"github.com/slack-tldr-bot/internal/scheduler"
	"github.com/slack-tldr-bot/internal/slackgw"
	"github.com/slack-tldr-bot/internal/summary"
	"github.com/slack-tldr-bot/internal/timeref"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("timezone", cfg.Timezone).
		Str("llm_provider", cfg.LLMProvider).
		Bool("digest_enabled", cfg.Digest.Enabled).
		Msg("Starting Slack TLDR Bot")

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load timezone once; resolver and scheduler share it
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("Failed to load timezone")
	}
	resolver := timeref.NewResolver(loc)

	// Initialize Slack gateway
	logger.Info().Msg("Initializing Slack client...")
	gateway := slackgw.NewClient(cfg.SlackBotToken, logger)

	// Initialize LLM client
	logger.Info().Str("provider", cfg.LLMProvider).Msg("Initializing LLM client...")
	completer, err := llm.NewCompleter(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create LLM client")
	}
	if closer, ok := completer.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close LLM client")
			}
		}()
	}

	// Initialize pipeline and composer
	pipeline := enrich.NewPipeline(gateway, cfg.HistoryLimit, cfg.HistoryFailOpen, logger)
	composer := summary.NewComposer(completer, cfg.LLMMaxTokens, logger)

	// Initialize bot
	logger.Info().Msg("Initializing bot...")
	tldrBot := bot.New(cfg, resolver, gateway, pipeline, composer, gateway, logger)

	// Initialize digest scheduler (if enabled)
	var sched *scheduler.Scheduler
	if cfg.Digest.Enabled {
		logger.Info().Msg("Initializing digest scheduler...")
		sched = scheduler.NewScheduler(gateway, pipeline, composer, resolver, cfg.Digest, loc, logger)

		// Start scheduler in background
		go func() {
			if err := sched.Start(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("Scheduler stopped with error")
			}
		}()
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start bot in a goroutine
	botErrChan := make(chan error, 1)
	go func() {
		if err := tldrBot.Start(ctx); err != nil {
			botErrChan <- err
		}
	}()

	logger.Info().Msg("Bot is running. Press Ctrl+C to stop.")

	// Wait for termination signal or bot error
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
	case err := <-botErrChan:
		logger.Error().Err(err).Msg("Bot stopped with error")
	}

	// Graceful shutdown
	logger.Info().Msg("Initiating graceful shutdown...")
	cancel()

	// Stop scheduler if running
	if sched != nil {
		logger.Info().Msg("Stopping scheduler...")
		sched.Stop()
	}

	// Give the bot some time to finish processing
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Create a channel to signal shutdown complete
	done := make(chan struct{})
	go func() {
		tldrBot.Stop() // This will wait for WaitGroup internally
		close(done)
	}()

	// Wait for shutdown or timeout
	select {
	case <-shutdownCtx.Done():
		logger.Warn().Msg("Shutdown timeout exceeded, some requests may be lost")
	case <-done:
		logger.Info().Msg("Graceful shutdown completed")
	}

	logger.Info().Msg("Bot stopped")
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	var logger zerolog.Logger
	if environment == "development" {
		// Pretty console output for development
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		// JSON output for production
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}
