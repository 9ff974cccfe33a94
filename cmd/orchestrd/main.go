package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orchestrd/orchestrd/internal/api"
	"github.com/orchestrd/orchestrd/internal/autosearch"
	"github.com/orchestrd/orchestrd/internal/broadcast"
	"github.com/orchestrd/orchestrd/internal/capability"
	"github.com/orchestrd/orchestrd/internal/config"
	"github.com/orchestrd/orchestrd/internal/database"
	"github.com/orchestrd/orchestrd/internal/downloadclient"
	"github.com/orchestrd/orchestrd/internal/grab"
	"github.com/orchestrd/orchestrd/internal/health"
	"github.com/orchestrd/orchestrd/internal/indexer"
	"github.com/orchestrd/orchestrd/internal/indexer/cardigann"
	"github.com/orchestrd/orchestrd/internal/indexer/genericrss"
	"github.com/orchestrd/orchestrd/internal/logging"
	"github.com/orchestrd/orchestrd/internal/metadata"
	"github.com/orchestrd/orchestrd/internal/notify"
	"github.com/orchestrd/orchestrd/internal/orchestrator"
	"github.com/orchestrd/orchestrd/internal/quality"
	"github.com/orchestrd/orchestrd/internal/ratelimit"
	"github.com/orchestrd/orchestrd/internal/releasecache"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logging.New(logging.Config{
		Level:           cfg.Logging.Level,
		Format:          cfg.Logging.Format,
		Path:            cfg.Logging.Path,
		MaxSizeMB:       cfg.Logging.MaxSizeMB,
		MaxBackups:      cfg.Logging.MaxBackups,
		MaxAgeDays:      cfg.Logging.MaxAgeDays,
		Compress:        cfg.Logging.Compress,
		EnableStreaming: true,
		BufferSize:      1000,
	})
	defer log.Close()

	log.Info().Str("version", config.Version).Msg("starting orchestrd")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	hub := broadcast.NewHub(log.Logger)
	go hub.Run()

	profile := quality.DefaultProfile()

	tracker := health.New(db.Conn(), health.Config{
		FailureThreshold:      cfg.Indexer.Status.FailureThreshold,
		BackoffMultiplier:     cfg.Indexer.Status.BackoffMultiplier,
		InitialBackoffMinutes: cfg.Indexer.Status.InitialBackoffMinutes,
		MaxBackoffHours:       cfg.Indexer.Status.MaxBackoffHours,
	})

	governor := ratelimit.New(cfg.Indexer.RateLimit.DefaultIndexerRPM, cfg.Indexer.RateLimit.DefaultHostRPM)
	caps := capability.New(1 * time.Hour)
	cache := releasecache.New[indexer.ReleaseView](15 * time.Minute)

	adapters, err := buildIndexerAdapters(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load indexer definitions")
	}
	log.Info().Int("count", len(adapters)).Msg("loaded indexer adapters")

	orch := orchestrator.New(orchestrator.Config{
		Adapters:    adapters,
		Caps:        caps,
		Governor:    governor,
		Tracker:     tracker,
		Cache:       cache,
		Profile:     profile,
		Resolver:    buildMetadataResolver(cfg),
		Broadcaster: hub,
		Logger:      log.Logger,
	})

	clients := buildDownloadClients(cfg)
	dispatcher := grab.New(db.Conn(), clients, hub, cfg.Download.Category)

	dispatcher.SetNotifier(buildNotifier(cfg))
	dispatcher.SetAdapters(adaptersByID(adapters))

	if cfg.AutoSearch.Enabled {
		source := autosearch.NewDBWantedSource(db.Conn(), profile)
		scheduler, err := autosearch.New(orch, dispatcher, source, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create autosearch scheduler")
		}
		if err := scheduler.Start(cfg.AutoSearch.IntervalDuration()); err != nil {
			log.Fatal().Err(err).Msg("failed to start autosearch scheduler")
		}
		defer scheduler.Stop()
	}

	server := api.New(orch, dispatcher, tracker, hub, profile, log.Logger)

	go func() {
		addr := cfg.Server.Address()
		log.Info().Str("address", addr).Msg("HTTP server listening")
		if err := server.Start(addr); err != nil {
			log.Info().Msg("server stopped")
		}
	}()

	sweepStop := startSweeps(db, cfg, tracker, cache, log)
	defer close(sweepStop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("received shutdown signal")
	if err := server.Shutdown(10); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}

func buildIndexerAdapters(cfg *config.Config) ([]indexer.Adapter, error) {
	defs, err := cardigann.LoadDefinitions(cfg.Indexer.Cardigann.DefinitionsDir)
	if err != nil {
		return nil, err
	}
	adapters := make([]indexer.Adapter, 0, len(defs)+len(cfg.Indexer.Feeds))
	for _, def := range defs {
		adapters = append(adapters, cardigann.New(def, ""))
	}
	for _, feed := range cfg.Indexer.Feeds {
		categories := indexer.MovieCategories
		switch feed.ContentType {
		case "tv":
			categories = indexer.TVCategories
		case "both":
			categories = append(append([]int{}, indexer.MovieCategories...), indexer.TVCategories...)
		}
		protocol := indexer.ProtocolTorrent
		if feed.Protocol == string(indexer.ProtocolUsenet) {
			protocol = indexer.ProtocolUsenet
		}
		adapters = append(adapters, genericrss.New(feed.ID, feed.URL, feed.Cookie, protocol, categories))
	}
	return adapters, nil
}

func buildMetadataResolver(cfg *config.Config) metadata.Resolver {
	if cfg.Metadata.TMDB.APIKey == "" {
		return nil
	}
	return metadata.NewTMDBClient(
		cfg.Metadata.TMDB.APIKey,
		cfg.Metadata.TMDB.BaseURL,
		time.Duration(cfg.Metadata.TMDB.Timeout)*time.Second,
	)
}

func adaptersByID(adapters []indexer.Adapter) map[string]indexer.Adapter {
	byID := make(map[string]indexer.Adapter, len(adapters))
	for _, a := range adapters {
		byID[a.ID()] = a
	}
	return byID
}

func buildDownloadClients(cfg *config.Config) *downloadclient.Registry {
	var clients []downloadclient.Client
	if cfg.Download.QBittorrent.Enabled {
		clients = append(clients, downloadclient.NewQBittorrentClient(
			"qbittorrent",
			cfg.Download.QBittorrent.BaseURL,
			cfg.Download.QBittorrent.Username,
			cfg.Download.QBittorrent.Password,
			20*time.Second,
		))
	}
	return downloadclient.NewRegistry(clients)
}

func buildNotifier(cfg *config.Config) *notify.Dispatcher {
	var sinks []notify.Sink
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.WebhookURL != "" {
		sinks = append(sinks, notify.NewDiscordSink("discord", cfg.Notify.Discord.WebhookURL))
	}
	return notify.NewDispatcher(sinks)
}

func startSweeps(db *database.DB, cfg *config.Config, tracker *health.Tracker, cache *releasecache.Cache[indexer.ReleaseView], log *logging.Logger) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Health.BackoffSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := tracker.SweepExpired(context.Background()); err != nil {
					log.Warn().Err(err).Msg("backoff sweep failed")
				} else if n > 0 {
					log.Debug().Int64("count", n).Msg("cleared expired indexer backoffs")
				}
			case <-stop:
				return
			}
		}
	}()
	go func() {
		ticker := time.NewTicker(cfg.Health.CacheSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cache.Sweep()
			case <-stop:
				return
			}
		}
	}()
	return stop
}
