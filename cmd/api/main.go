package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dsa-wrapper/dsa_wrapper/internal/chain"
	"github.com/dsa-wrapper/dsa_wrapper/internal/config"
	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
	"github.com/dsa-wrapper/dsa_wrapper/internal/infra"
	"github.com/dsa-wrapper/dsa_wrapper/internal/ledger"
	"github.com/dsa-wrapper/dsa_wrapper/internal/logging"
	"github.com/dsa-wrapper/dsa_wrapper/internal/notification"
	"github.com/dsa-wrapper/dsa_wrapper/internal/routes"
	"github.com/dsa-wrapper/dsa_wrapper/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory ledger")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency and rate limiting disabled")
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kn := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kn.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		notifier = kn
	}

	led, err := ledger.Open(ctx, db)
	if err != nil {
		logger.Error("open ledger", "error", err)
		os.Exit(1)
	}

	registry, tokens, err := bootstrapChain(ctx, cfg, led, logger)
	if err != nil {
		logger.Error("bootstrap chain", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Registry: registry,
		Ledger:   led,
		Tokens:   tokens,
		Notifier: notifier,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// bootstrapChain builds the in-process chain, token set and account registry.
// Account ids continue after the highest id the ledger already holds.
// In development the owner is funded, pre-approves the wrapper for its tokens
// and gets a first account trusting the wrapper.
func bootstrapChain(ctx context.Context, cfg config.Config, led ledger.Ledger, logger *slog.Logger) (*dsa.MemoryRegistry, *chain.Tokens, error) {
	bank := chain.NewBank()
	tokens := chain.NewTokens()
	minted := make([]*chain.Token, 0, len(cfg.TokenAddresses))
	for i, addr := range cfg.TokenAddresses {
		tok := chain.NewToken(addr, fmt.Sprintf("TKN%d", i))
		tokens.Register(tok)
		minted = append(minted, tok)
	}

	// The registry sits at the owner's second deployment, after the wrapper.
	registry := dsa.NewMemoryRegistry(crypto.CreateAddress(cfg.OwnerAddress, 1), bank, tokens)
	last, err := led.LastAccount(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read last ledger account: %w", err)
	}
	registry.ReserveThrough(last)

	if !cfg.IsDev() {
		return registry, tokens, nil
	}

	bank.Fund(cfg.OwnerAddress, cfg.DevNativeFunds)
	symbols := make([]string, 0, len(minted))
	for _, tok := range minted {
		symbols = append(symbols, tok.Symbol())
		tok.Mint(cfg.OwnerAddress, cfg.DevTokenFunds)
		tok.Approve(cfg.OwnerAddress, cfg.WrapperAddress, cfg.DevTokenFunds)
	}
	id, addr, err := registry.Build(ctx, cfg.OwnerAddress, cfg.WrapperAddress)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("dev chain ready",
		slog.String("owner", cfg.OwnerAddress.Hex()),
		slog.String("account_id", id.String()),
		slog.String("account_address", addr.Hex()),
		slog.String("native_funds", cfg.DevNativeFunds.String()),
		slog.Any("tokens", symbols),
	)
	return registry, tokens, nil
}
