package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adamsih300u/bastion-sub008/pkg/api"
	"github.com/adamsih300u/bastion-sub008/pkg/archive"
	"github.com/adamsih300u/bastion-sub008/pkg/blob"
	"github.com/adamsih300u/bastion-sub008/pkg/engine"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
	"github.com/adamsih300u/bastion-sub008/pkg/store"
	"github.com/adamsih300u/bastion-sub008/pkg/store/redis"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "faultsim-d: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faultsim-d: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	logger.Info("system_started", "component", "faultsim-d")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed_to_close_store", "error", err)
		}
	}()
	logger.Info("store_initialized", "path", cfg.DBPath)

	var (
		leases store.LeaseStore       = st
		cache  simulation.ResultCache = simulation.NewMemoryCache()
	)
	if cfg.LeaseBackend == "redis" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		leases = redis.NewLeaseStore(rdb)
		cache = redis.NewResultStore(rdb, cfg.ResultTTL)
		logger.Info("redis_connected", "addr", cfg.RedisAddr)
	}

	svc := simulation.NewService(
		simulation.WithEngineOptions(engine.Options{Workers: cfg.MCWorkers, Seed: cfg.MCSeed}),
		simulation.WithResultCache(cache),
		simulation.WithLogger(logger),
	)

	srv := api.NewServer(svc, st, leases, api.Config{
		Addr:          cfg.Addr,
		MaxIterations: cfg.MaxIterations,
		LeaseTTL:      cfg.LeaseTTL,
		LockWait:      cfg.LockWait,
		Logger:        logger,
	})

	if cfg.ArchiveDir != "" {
		worker := archive.NewWorker(st, blob.NewLocalBlobStore(cfg.ArchiveDir), archive.Config{
			Retention:     cfg.ArchiveRetention,
			CheckInterval: cfg.ArchiveInterval,
		}, logger)
		go worker.Run(ctx)
		logger.Info("archive_worker_started", "dir", cfg.ArchiveDir, "retention", cfg.ArchiveRetention.String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown_initiated")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("failed_to_stop_server", "error", err)
	}
	logger.Info("shutdown_complete")
	return nil
}
