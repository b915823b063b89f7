package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/romariotrain/visa-docs/internal/app"
	"github.com/romariotrain/visa-docs/internal/config"
	"github.com/romariotrain/visa-docs/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PORTAL_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.Get()

	code := app.Run("media", log, func(ctx context.Context) error {
		return run(ctx, cfg, log)
	})
	os.Exit(code)
}
