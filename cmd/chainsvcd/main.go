// TRON chain service daemon.
//
// Wires the chain client, block scanner, deposit monitor, transfer executor,
// and REST API from environment configuration and runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingex-tron/config"
	"github.com/Klingon-tech/klingex-tron/internal/chainclient"
	"github.com/Klingon-tech/klingex-tron/internal/deposit"
	"github.com/Klingon-tech/klingex-tron/internal/httpapi"
	"github.com/Klingon-tech/klingex-tron/internal/keystore"
	"github.com/Klingon-tech/klingex-tron/internal/ledger"
	"github.com/Klingon-tech/klingex-tron/internal/log"
	"github.com/Klingon-tech/klingex-tron/internal/monitor"
	"github.com/Klingon-tech/klingex-tron/internal/notify"
	"github.com/Klingon-tech/klingex-tron/internal/scanner"
	"github.com/Klingon-tech/klingex-tron/internal/service"
	"github.com/Klingon-tech/klingex-tron/internal/storage"
	"github.com/Klingon-tech/klingex-tron/internal/transfer"
	"github.com/Klingon-tech/klingex-tron/internal/txcache"
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
		return err
	}
	log.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := chainclient.New(cfg.Endpoint, cfg.APIKey, cfg.RPCTimeout)
	if err != nil {
		return fmt.Errorf("chain client: %w", err)
	}

	db, err := storage.NewBadger(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	keys, err := keystore.NewStore(db, cfg.KeyPassword)
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}

	// Redis is optional; without it the cache and notifier degrade to
	// in-process equivalents.
	var (
		cacheKV  txcache.KV
		notifier notify.Notifier
		redisKV  *txcache.RedisKV
	)
	if cfg.RedisAddr != "" {
		kv := txcache.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword)
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := kv.Ping(pingCtx)
		pingCancel()
		if err != nil {
			log.Cache.Warn().Err(err).Str("addr", cfg.RedisAddr).
				Msg("redis unreachable, using in-memory cache")
		} else {
			redisKV = kv
			cacheKV = kv
			notifier = notify.NewRedis(kv.Client())
		}
	}
	if cacheKV == nil {
		cacheKV = txcache.NewMemoryKV()
		notifier = notify.NewLog(log.Deposit)
	}
	if redisKV != nil {
		defer redisKV.Close()
	}
	cache := txcache.New(cacheKV, service.ChainName, cfg.CacheTTL)

	// The external ledger is Postgres in production; local runs without a
	// DSN fall back to process memory.
	var store ledger.Store
	if cfg.PostgresDSN != "" {
		pg, err := ledger.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect ledger: %w", err)
		}
		defer pg.Close()
		store = pg
	} else {
		log.Storage.Warn().Msg("no POSTGRES_DSN, using in-memory ledger")
		store = ledger.NewMemory()
	}

	scan := scanner.New(client, scanner.NewWatermarkStore(db), cfg.ScanBatchSize, log.Scanner)
	proc := deposit.NewProcessor(client, store, notifier, service.ChainName, log.Deposit)
	go proc.Hashes().Run(ctx)

	mon := monitor.New(ctx, scan, store, proc, cfg.PollInterval, log.Monitor)
	exec := transfer.New(client, keys, store, log.Transfer)

	svc, err := service.New(ctx, client, scan, cache, keys, mon, exec, cfg.ChainActive, log.Chain)
	if err != nil {
		return err
	}

	api := httpapi.New(cfg.ListenAddr, svc, log.API)
	if err := api.Start(); err != nil {
		return err
	}
	log.Info().
		Str("addr", api.Addr()).
		Str("network", string(cfg.Network)).
		Msg("chain service listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.API.Error().Err(err).Msg("API shutdown")
	}
	cancel()
	mon.Wait()
	return nil
}
