package main

import (
	"context"
	"flag"
	"time"

	"sitepulse/api/internal/config"
	"sitepulse/api/internal/database"
	"sitepulse/api/internal/log"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "migration timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := database.Migrate(ctx, cfg.Postgres.DSN, logger); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
}
