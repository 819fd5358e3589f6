package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/position"
	"solana-sniper/internal/storage"
)

var (
	closeForce   bool
	closeAbandon bool
	closeTimeout time.Duration
)

// closeAllCmd implements the 'sniper close-all' command
var closeAllCmd = &cobra.Command{
	Use:   "close-all",
	Short: "Dispose every position left in the state snapshot",
	Long: `Load the latest state snapshot, take over every active position it lists and
sell the full held quantity of each with exit reason MANUAL. Each outcome is
journaled and the snapshot is rewritten as stopped with whatever could not be
sold. Positions already DISPOSING keep their original exit reason. With
--abandon, a position whose sale fails is marked FAILED (DISPOSAL_ABANDONED)
instead of being left open.

Refuses to run while the snapshot says a session is running, unless --force.`,
	RunE: runCloseAll,
}

func init() {
	rootCmd.AddCommand(closeAllCmd)

	closeAllCmd.Flags().BoolVar(&closeForce, "force", false, "Run even if the snapshot reports a running session")
	closeAllCmd.Flags().BoolVar(&closeAbandon, "abandon", false, "Fail positions whose disposal fails instead of leaving them open")
	closeAllCmd.Flags().DurationVar(&closeTimeout, "timeout", 2*time.Minute, "Overall timeout")
}

func runCloseAll(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), closeTimeout)
	defer cancel()

	st, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	snap, err := st.snapshots.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Println("No state snapshot found; nothing to close.")
		return nil
	}
	if err != nil {
		return err
	}
	if snap.Running && !closeForce {
		return fmt.Errorf("session %s is still running; stop it first or pass --force", snap.SessionID)
	}
	if len(snap.ActivePositions) == 0 {
		fmt.Println("No active positions.")
		return nil
	}

	pool, err := buildPool(cfg, nil, logger)
	if err != nil {
		return err
	}
	td := buildTrading(cfg, pool, newDexScreener(cfg), logger)

	settings, err := position.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}
	if n := len(snap.ActivePositions); n > settings.MaxConcurrent {
		settings.MaxConcurrent = n
	}
	manager, err := position.NewManager(settings, position.Deps{
		Backend: td.backend,
		Oracle:  td.oracle,
		Ledger:  td.ledger,
		Journal: st.journal,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = manager.Shutdown(context.Background()) }()

	var restore func(string, domain.Position)
	if td.dryRun != nil {
		restore = func(assetID string, p domain.Position) {
			if p.AcquiredQuantity != nil {
				td.dryRun.Restore(assetID, *p.AcquiredQuantity)
			}
		}
	}

	res := closePositions(ctx, manager, snap.ActivePositions, restore, closeAbandon, logger)

	snap.Running = false
	snap.ActivePositions = manager.Active()
	snap.Stats = addStats(snap.Stats, manager.Stats())
	snap.UpdatedAt = time.Now().UnixMilli()
	if err := st.snapshots.Save(context.Background(), snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	fmt.Printf("Closed %d, failed %d, still open %d\n", res.closed, res.failed, len(snap.ActivePositions))
	if len(snap.ActivePositions) > 0 {
		return fmt.Errorf("%d positions could not be disposed", len(snap.ActivePositions))
	}
	return nil
}

type closeResult struct {
	closed int
	failed int
}

// closePositions adopts each position into m and disposes it with reason
// MANUAL; positions already DISPOSING are retried with their own reason.
// restore, when set, seeds simulated holdings before disposal. With abandon,
// a failed disposal fails the position rather than leaving it open.
func closePositions(ctx context.Context, m *position.Manager, positions []domain.Position, restore func(string, domain.Position), abandon bool, logger *zap.Logger) closeResult {
	var res closeResult
	for _, p := range positions {
		log := logger.With(zap.String("mint", p.AssetID), zap.String("state", string(p.State)))

		if err := m.Adopt(p); err != nil {
			log.Warn("adopt failed", zap.Error(err))
			res.failed++
			continue
		}
		if restore != nil {
			restore(p.AssetID, p)
		}

		var err error
		if p.State == domain.StateDisposing {
			err = m.RetryDispose(ctx, p.AssetID)
		} else {
			err = m.Dispose(ctx, p.AssetID, domain.ExitManual)
		}
		var failed *position.FailedError
		switch {
		case err == nil:
			log.Info("position closed")
			res.closed++
		case errors.As(err, &failed):
			log.Warn("position failed", zap.Error(err))
			res.failed++
		case abandon:
			if aerr := m.Abandon(p.AssetID); aerr != nil {
				log.Warn("abandon failed; position left open", zap.Error(err), zap.NamedError("abandon_error", aerr))
				continue
			}
			log.Warn("disposal failed; position abandoned", zap.Error(err))
			res.failed++
		default:
			log.Warn("disposal failed; position left open", zap.Error(err))
		}
	}
	return res
}

// addStats sums two sets of session counters.
func addStats(a, b domain.Stats) domain.Stats {
	return domain.Stats{
		Detected:    a.Detected + b.Detected,
		Dropped:     a.Dropped + b.Dropped,
		Rejected:    a.Rejected + b.Rejected,
		Executed:    a.Executed + b.Executed,
		Wins:        a.Wins + b.Wins,
		TakeProfits: a.TakeProfits + b.TakeProfits,
		StopLosses:  a.StopLosses + b.StopLosses,
		Timeouts:    a.Timeouts + b.Timeouts,
		Failed:      a.Failed + b.Failed,
	}
}
