package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-sniper/internal/discovery"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/position"
	"solana-sniper/internal/reporting"
	"solana-sniper/internal/sniper"
	"solana-sniper/internal/solana"
)

var (
	runDryRun bool
	runFor    time.Duration
	runQuiet  bool
)

// runCmd implements the 'sniper run' command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a trading session",
	Long: `Run a trading session: subscribe to launch events, screen each new mint and
trade accepted candidates. The session stops on SIGINT/SIGTERM or after
--run-for, writes a final state snapshot and prints the session report.

Examples:
  sniper run --config sniper.yaml
  sniper run --dry-run --run-for 30m`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Simulate trades regardless of config")
	runCmd.Flags().DurationVar(&runFor, "run-for", 0, "Stop automatically after this long (overrides config)")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Do not print the session report on exit")
}

func runSession(cmd *cobra.Command, _ []string) error {
	// Applied before validation so a live config without a wallet can still dry-run.
	if runDryRun {
		if err := os.Setenv("DRY_RUN", "true"); err != nil {
			return err
		}
	}
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if runFor > 0 {
		cfg.Sniper.RunFor = runFor
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("")
	metrics.MarkStarted(time.Now())

	st, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close storage", zap.Error(err))
		}
	}()

	pool, err := buildPool(cfg, metrics, logger)
	if err != nil {
		return err
	}

	sd, err := buildScreen(ctx, cfg, pool, metrics, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sd.close() }()

	td := buildTrading(cfg, pool, sd.dexscreener, logger)

	settings, err := position.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	// The manager is created before the session it notifies; transitions
	// only start once the session opens a position.
	var session *sniper.Sniper
	manager, err := position.NewManager(settings, position.Deps{
		Backend:  td.backend,
		Oracle:   td.oracle,
		Ledger:   td.ledger,
		Journal:  st.journal,
		Logger:   logger,
		Observer: metrics,
		OnChange: func() {
			if session != nil {
				session.Changed()
			}
		},
	})
	if err != nil {
		return err
	}

	deps := sniper.Deps{
		Screen:    sd.screen,
		Positions: manager,
		Verdicts:  st.verdicts,
		Snapshots: st.snapshots,
		Logger:    logger,
		Observer:  metrics,
	}
	if td.holdings != nil {
		deps.Balance = td.holdings
	}
	session, err = sniper.New(sniper.Settings{
		DryRun:           cfg.DryRun,
		SnapshotInterval: cfg.Sniper.SnapshotInterval,
		MinBalance:       cfg.MinBalance(),
		RunFor:           cfg.Sniper.RunFor,
	}, deps)
	if err != nil {
		return err
	}

	if cfg.Sniper.HTTPAddr != "" {
		srv := observability.NewServer(cfg.Sniper.HTTPAddr, metrics, session, pool, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	detector, err := discovery.NewDetector(discovery.DefaultSeenCacheSize, st.progress)
	if err != nil {
		return err
	}

	wsCfg := solana.DefaultWSConfig()
	ws := solana.NewWSClient(cfg.RPC.WSEndpoint, &wsCfg, logger)
	defer func() { _ = ws.Close() }()

	feed := discovery.NewLaunchFeed(ws, pool, detector, discovery.WithFeedLogger(logger))
	events, err := feed.Start(ctx)
	if err != nil {
		return fmt.Errorf("start launch feed: %w", err)
	}

	logger.Info("sniper starting",
		zap.String("session", session.SessionID()),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Int("endpoints", pool.Len()),
		zap.Duration("run_for", cfg.Sniper.RunFor))

	if err := session.Run(ctx, events); err != nil {
		return err
	}

	if runQuiet {
		return nil
	}
	report, err := reporting.NewGenerator(st.journal, st.snapshots).Generate(context.Background())
	if err != nil {
		return fmt.Errorf("session report: %w", err)
	}
	_, err = fmt.Fprint(os.Stdout, reporting.RenderMarkdown(report))
	return err
}
