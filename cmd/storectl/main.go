package main

import (
	"context"
	"log"
	"os"

	"mangatrack/cmd/storectl/command"
	"mangatrack/database"
	"mangatrack/internal/config"
	"mangatrack/internal/logger"
	"mangatrack/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// keep stdout for command output
	logger := logger.NewWithWriter(cfg, os.Stderr)

	command.Execute(func(ctx context.Context) (store.Store, error) {
		return database.OpenStore(ctx, cfg, logger)
	})
}
