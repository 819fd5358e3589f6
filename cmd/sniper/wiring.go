package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solana-sniper/internal/config"
	"solana-sniper/internal/risk"
	"solana-sniper/internal/risk/cache"
	"solana-sniper/internal/risk/sources"
	"solana-sniper/internal/rpcpool"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/trading"
)

// buildPool creates the RPC endpoint pool. obs may be nil.
func buildPool(cfg *config.Config, obs rpcpool.Observer, logger *zap.Logger) (*rpcpool.Pool, error) {
	opts := []rpcpool.Option{
		rpcpool.WithClientFactory(func(url string) solana.RPCClient {
			return solana.NewHTTPClient(url, solana.WithTimeout(cfg.RPC.Timeout))
		}),
		rpcpool.WithMaxAttempts(cfg.RPC.MaxAttempts),
		rpcpool.WithLogger(logger),
	}
	if obs != nil {
		opts = append(opts, rpcpool.WithObserver(obs))
	}
	return rpcpool.New(cfg.RPC.Endpoints, opts...)
}

// screenDeps are the parts of the screen other components share.
type screenDeps struct {
	screen      *risk.Screen
	dexscreener *sources.DexScreener
	close       func() error
}

// buildScreen creates the risk screen and its verdict cache.
func buildScreen(ctx context.Context, cfg *config.Config, accounts risk.AccountReader, obs risk.Observer, logger *zap.Logger) (*screenDeps, error) {
	rc := cfg.Risk
	dex := newDexScreener(cfg)

	var (
		verdictCache cache.Cache
		closeCache   = func() error { return nil }
	)
	switch rc.Cache.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: rc.Cache.RedisAddr, DB: rc.Cache.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		verdictCache = cache.NewRedis(rdb, rc.Cache.TTL, logger)
		closeCache = rdb.Close
	default:
		verdictCache = cache.NewMemory(rc.Cache.Size, rc.Cache.TTL)
	}

	deps := risk.Deps{
		Report:   sources.NewRugCheck(rc.RugCheck.URL, rc.RugCheck.Spacing, rc.RugCheck.Timeout, nil),
		Market:   dex,
		Accounts: accounts,
		Cache:    verdictCache,
		Logger:   logger,
		Observer: obs,
	}
	if rc.SecurityCheck {
		deps.Security = sources.NewGoPlus(rc.GoPlus.URL, rc.GoPlus.Spacing, rc.GoPlus.Timeout, nil)
	}

	screen, err := risk.NewScreen(rc, deps)
	if err != nil {
		_ = closeCache()
		return nil, err
	}
	return &screenDeps{screen: screen, dexscreener: dex, close: closeCache}, nil
}

func newDexScreener(cfg *config.Config) *sources.DexScreener {
	dc := cfg.Risk.DexScreener
	return sources.NewDexScreener(dc.URL, dc.Spacing, dc.Timeout, nil)
}

// tradingDeps are the trading collaborators of the position manager.
type tradingDeps struct {
	backend  trading.Backend
	oracle   trading.PriceOracle
	ledger   trading.LedgerStatus
	holdings *trading.RPCHoldings // nil without a wallet
	dryRun   *trading.DryRunBackend
}

// buildTrading selects simulated or live trading collaborators.
func buildTrading(cfg *config.Config, pool *rpcpool.Pool, dex *sources.DexScreener, logger *zap.Logger) *tradingDeps {
	td := &tradingDeps{}
	if cfg.Wallet.PublicKey != "" {
		td.holdings = trading.NewRPCHoldings(pool, cfg.Wallet.PublicKey)
	}

	switch cfg.Exits.PriceSource {
	case "simulated":
		td.oracle = trading.NewSimulatedOracle(time.Now().UnixNano())
	default:
		td.oracle = trading.NewDexScreenerOracle(dex)
	}

	if cfg.DryRun {
		td.dryRun = trading.NewDryRunBackend(td.oracle, trading.WithDryRunLogger(logger))
		td.backend = td.dryRun
		td.ledger = td.dryRun
		return td
	}

	td.backend = trading.NewPumpPortalBackend(cfg.Trading, td.holdings, nil, logger)
	td.ledger = trading.NewRPCLedger(pool)
	return td
}
