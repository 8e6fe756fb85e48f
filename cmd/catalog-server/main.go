// Command catalog-server runs the music catalog API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/ratemymusic/catalog/internal/config"
	"github.com/ratemymusic/catalog/internal/db"
	"github.com/ratemymusic/catalog/internal/queue"
	"github.com/ratemymusic/catalog/internal/search"
	"github.com/ratemymusic/catalog/internal/spotify"
	syncsvc "github.com/ratemymusic/catalog/internal/sync"
	"github.com/ratemymusic/catalog/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	ctx := context.Background()

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	catalog := spotify.New(spotify.Config{
		ClientID:       cfg.Spotify.ClientID,
		ClientSecret:   cfg.Spotify.ClientSecret,
		DefaultMarket:  cfg.Spotify.Market,
		BaseURL:        cfg.Spotify.BaseURL,
		TokenURL:       cfg.Spotify.TokenURL,
		RequestsPerSec: cfg.Spotify.RequestsPerSec,
	})

	candidateOpts := []search.CandidatesOption{search.WithCandidatesLogger(logger)}
	if cfg.Queue.Enabled {
		qcfg := queue.DefaultConfig(cfg.Queue.URL)
		if cfg.Queue.Topic != "" {
			qcfg.Topic = cfg.Queue.Topic
		}
		publisher, err := queue.NewPublisher(qcfg, logger)
		if err != nil {
			return fmt.Errorf("connecting to queue: %w", err)
		}
		defer publisher.Close()
		candidateOpts = append(candidateOpts, search.WithEnqueuer(publisher))
	}

	searchSvc := search.NewService(database)
	candidates := search.NewCandidates(catalog, database.Albums(), candidateOpts...)
	syncService := syncsvc.NewService(syncsvc.NewStore(database), catalog, syncsvc.WithLogger(logger))

	handlers := web.NewHandlers(searchSvc, candidates, syncService, database.Albums(), database.Tracks(), logger)
	server := web.NewServer(web.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handlers, logger)

	return server.Run()
}

func newLogger(cfg config.LoggingConfig) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if cfg.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}
	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
