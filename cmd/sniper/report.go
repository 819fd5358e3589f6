package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"solana-sniper/internal/reporting"
)

var (
	reportFormat string
	reportOutput string
	reportRecent int
)

// reportCmd implements the 'sniper report' command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the session report from the trade journal",
	Long: `Build the session report from the trade journal and the latest state
snapshot. Markdown prints session counters, the P&L distribution and recent
trades; CSV exports every journaled trade.

Examples:
  sniper report
  sniper report --format csv --output trades.csv`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown", "Output format (markdown|csv)")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "Output file (default: stdout)")
	reportCmd.Flags().IntVar(&reportRecent, "recent", reporting.DefaultRecentTrades, "Number of recent trades to list")
}

func runReport(cmd *cobra.Command, _ []string) error {
	if reportFormat != "markdown" && reportFormat != "csv" {
		return fmt.Errorf("unknown format %q", reportFormat)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	st, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var text string
	switch reportFormat {
	case "csv":
		trades, err := st.journal.GetAll(ctx)
		if err != nil {
			return err
		}
		text = reporting.RenderTradesCSV(trades)
	default:
		report, err := reporting.NewGenerator(st.journal, st.snapshots).
			WithRecent(reportRecent).
			Generate(ctx)
		if err != nil {
			return err
		}
		text = reporting.RenderMarkdown(report)
	}

	var out io.Writer = os.Stdout
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = io.WriteString(out, text)
	return err
}
