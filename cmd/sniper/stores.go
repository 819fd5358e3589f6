package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
	chstore "solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/file"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/storage/migrations"
	pgstore "solana-sniper/internal/storage/postgres"
)

// stores holds the storage implementations selected by config.
type stores struct {
	journal   storage.TradeJournal
	verdicts  storage.VerdictLog
	snapshots storage.SnapshotStore
	progress  storage.DiscoveryProgressStore
	closers   []func() error
}

// Close releases every backend, newest first.
func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openStores creates the storage backends named by cfg. A ClickHouse DSN adds
// an analytics copy of the verdict log on top of the primary backend.
func openStores(ctx context.Context, cfg config.StorageCfg, logger *zap.Logger) (*stores, error) {
	s := &stores{}

	switch cfg.Backend {
	case "memory":
		s.journal = memory.NewTradeJournal()
		s.verdicts = memory.NewVerdictLog()
		s.snapshots = memory.NewSnapshotStore()
		s.progress = memory.NewDiscoveryProgressStore()

	case "file":
		journal, err := file.OpenTradeJournal(cfg.Dir)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, journal.Close)
		verdicts, err := file.OpenVerdictLog(cfg.Dir)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.closers = append(s.closers, verdicts.Close)
		progress, err := file.OpenDiscoveryProgressStore(cfg.Dir)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.closers = append(s.closers, progress.Close)
		s.journal = journal
		s.verdicts = verdicts
		s.progress = progress
		s.snapshots = file.NewSnapshotStore(cfg.Dir)

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.journal = pgstore.NewTradeJournal(pool)
		s.verdicts = pgstore.NewVerdictLog(pool)
		s.snapshots = pgstore.NewSnapshotStore(pool)
		s.progress = pgstore.NewDiscoveryProgressStore(pool)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		s.verdicts = &teeVerdictLog{
			primary:   s.verdicts,
			analytics: chstore.NewVerdictLog(conn),
			logger:    logger.Named("verdicts"),
		}
	}

	logger.Info("storage ready",
		zap.String("backend", cfg.Backend),
		zap.Bool("clickhouse", cfg.ClickHouseDSN != ""))
	return s, nil
}

// teeVerdictLog writes every verdict to the primary log and, best effort, to
// an analytics log. Reads are served by the primary.
type teeVerdictLog struct {
	primary   storage.VerdictLog
	analytics storage.VerdictLog
	logger    *zap.Logger
}

func (t *teeVerdictLog) Insert(ctx context.Context, v *domain.VerdictRecord) error {
	if err := t.primary.Insert(ctx, v); err != nil {
		return err
	}
	if err := t.analytics.Insert(ctx, v); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		t.logger.Warn("analytics verdict insert failed", zap.String("verdict_id", v.VerdictID), zap.Error(err))
	}
	return nil
}

func (t *teeVerdictLog) GetByAsset(ctx context.Context, assetID string) ([]*domain.VerdictRecord, error) {
	return t.primary.GetByAsset(ctx, assetID)
}

var _ storage.VerdictLog = (*teeVerdictLog)(nil)
