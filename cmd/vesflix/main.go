package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vesflix/internal/api"
	"vesflix/internal/bootstrap"
	"vesflix/internal/cache"
	"vesflix/internal/config"
	vlog "vesflix/internal/log"
	"vesflix/internal/node"
	"vesflix/internal/server"
	"vesflix/internal/stream"
	"vesflix/internal/tempfile"
)

func main() {
	configPath := flag.String("config", os.Getenv("VESFLIX_CONFIG"), "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "vesflix: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	identity := node.New().Identify()
	vlog.Configure(vlog.Config{Level: cfg.Log.Level, NodeID: identity.ID})
	logger := vlog.WithComponent("main")
	logger.Info().
		Str("hostname", identity.Hostname).
		Str("platform", identity.Platform).
		Str("storage", cfg.Storage.Backend).
		Str("metadata", cfg.Metadata.Driver).
		Bool("cache", cfg.Cache.Enabled).
		Bool("redis", cfg.Redis.Enabled).
		Msg("starting vesflix")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta, err := bootstrap.Metadata(ctx, cfg.Metadata)
	if err != nil {
		return err
	}
	defer meta.Close()

	blobs, err := bootstrap.BlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	store := bootstrap.CacheStore(ctx, cfg, vlog.WithComponent("cache"))
	defer store.Close()
	chunks := cache.NewChunkCache(store, cfg.Cache.TTL, vlog.WithComponent("cache"), cache.WithKeyPrefix(cfg.Cache.KeyPrefix))

	temps, err := tempfile.NewManager(cfg.Stream.TempDir, cfg.Stream.CleanupFallback, vlog.WithComponent("tempfile"))
	if err != nil {
		return err
	}
	if cfg.Stream.SweepSchedule != "" {
		stopSweeper, err := temps.StartSweeper(cfg.Stream.SweepSchedule, cfg.Stream.CleanupFallback)
		if err != nil {
			return err
		}
		defer stopSweeper()
	}

	dispatcher := stream.NewDispatcher(meta, blobs, bootstrap.Cipher(), chunks, temps, vlog.WithComponent("stream"),
		stream.WithBlockSize(cfg.Stream.BlockSize),
		stream.WithMaxChunkBytes(cfg.Cache.MaxChunkBytes),
		stream.WithDecryptTimeout(cfg.Stream.DecryptTimeout),
	)

	router := api.NewServer(dispatcher, meta, store, api.Config{
		RateLimit: cfg.Server.RateLimit,
		Node:      identity,
	}).Router()

	var jobs []server.Job
	if cfg.Cache.Enabled && cfg.Redis.Enabled && cfg.Redis.ReconnectInterval > 0 {
		jobs = append(jobs, server.Every(cfg.Redis.ReconnectInterval, logger, "cache-reconnect", func(ctx context.Context) error {
			if store.IsOpen() {
				return nil
			}
			return store.Connect(ctx)
		}))
	}

	app := server.NewApp(server.Config{
		Addr:            cfg.Server.ListenAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, vlog.WithComponent("server"), jobs...)

	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("vesflix stopped")
	return nil
}
