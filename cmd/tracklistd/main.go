package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"tracklist/internal/config"
	"tracklist/internal/daemon"
	"tracklist/internal/enrich"
	"tracklist/internal/ingest"
	"tracklist/internal/library"
	"tracklist/internal/logging"
	"tracklist/internal/queue"
	"tracklist/internal/recognition"
	"tracklist/internal/segmenter"
	"tracklist/internal/services/apple"
	"tracklist/internal/services/shazam"
	"tracklist/internal/services/spotify"
	"tracklist/internal/services/youtube"
	"tracklist/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		log.Fatalf("open queue store: %v", err)
	}
	defer store.Close()

	lib, err := library.Open(cfg)
	if err != nil {
		log.Fatalf("open library store: %v", err)
	}
	defer lib.Close()

	platform := youtube.New(youtube.WithLogger(logging.NewComponentLogger(logger, "youtube")))

	recognizer, err := shazam.New(cfg.Shazam.APIKey, cfg.Shazam.BaseURL)
	if err != nil {
		log.Fatalf("init fingerprint client: %v", err)
	}
	orchestrator, err := recognition.New(recognizer,
		recognition.WithConcurrency(cfg.Shazam.Concurrency),
		recognition.WithRequestTimeout(time.Duration(cfg.Shazam.RequestTimeout)*time.Second),
		recognition.WithMaxRetries(cfg.Shazam.MaxRetries),
		recognition.WithLogger(logging.NewComponentLogger(logger, "recognition")))
	if err != nil {
		log.Fatalf("init recognition: %v", err)
	}

	enrichOpts := []enrich.Option{
		enrich.WithLogger(logging.NewComponentLogger(logger, "enrich")),
	}
	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret != "" {
		catalog, err := spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.BaseURL, cfg.Spotify.TokenURL)
		if err != nil {
			log.Fatalf("init spotify client: %v", err)
		}
		enrichOpts = append(enrichOpts, enrich.WithSpotify(catalog))
	}
	if cfg.Apple.DeveloperToken != "" {
		catalog, err := apple.New(cfg.Apple.DeveloperToken, cfg.Apple.BaseURL, cfg.Apple.Storefront)
		if err != nil {
			log.Fatalf("init apple client: %v", err)
		}
		enrichOpts = append(enrichOpts, enrich.WithApple(catalog))
	}

	seg := segmenter.New(cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.Ingest.SegmentWorkers,
		logging.NewComponentLogger(logger, "segmenter"))

	coordinator, err := ingest.New(cfg, lib, platform, seg, orchestrator, enrich.New(enrichOpts...),
		logging.NewComponentLogger(logger, "ingest"))
	if err != nil {
		log.Fatalf("init coordinator: %v", err)
	}

	manager, err := workflow.New(cfg, store, coordinator, platform,
		logging.NewComponentLogger(logger, "workflow"))
	if err != nil {
		log.Fatalf("init workflow: %v", err)
	}

	d, err := daemon.New(cfg, store, manager, logger)
	if err != nil {
		log.Fatalf("init daemon: %v", err)
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("daemon: %v", err)
	}
	logger.Info("tracklistd shut down")
}
