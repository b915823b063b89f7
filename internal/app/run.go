package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Runner blocks until ctx is canceled or it fails. It must return promptly
// after cancellation.
type Runner func(ctx context.Context) error

// stopGrace bounds how long Run waits for a Runner after a signal.
const stopGrace = 15 * time.Second

// Run executes run until SIGINT/SIGTERM and returns the process exit code.
func Run(serviceName string, logger zerolog.Logger, run Runner) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runContext(ctx, serviceName, logger, run)
}

func runContext(ctx context.Context, serviceName string, logger zerolog.Logger, run Runner) int {
	log := logger.With().Str("service", serviceName).Logger()
	log.Info().Msg("starting")

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("shutdown failed")
				return 1
			}
		case <-time.After(stopGrace):
			log.Error().Dur("grace", stopGrace).Msg("shutdown timed out")
			return 1
		}
		log.Info().Msg("stopped")
		return 0
	case err := <-errCh:
		if err != nil && !(ctx.Err() != nil && errors.Is(err, context.Canceled)) {
			log.Error().Err(err).Msg("failed")
			return 1
		}
		log.Info().Msg("stopped")
		return 0
	}
}
