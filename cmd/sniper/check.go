package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/solana"
)

var (
	checkJSON    bool
	checkTimeout time.Duration
)

// checkCmd implements the 'sniper check <mint>' command
var checkCmd = &cobra.Command{
	Use:   "check <mint>",
	Short: "Screen a single asset and print the verdict",
	Long: `Run one screening pass for a mint address and print the per-check results,
the composite score and the accept/reject decision. Nothing is traded or
journaled.

Examples:
  sniper check 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU
  sniper check <mint> --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the verdict as JSON")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 30*time.Second, "Overall screening timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	mint := args[0]
	if !solana.IsValidAddress(mint) {
		return fmt.Errorf("invalid mint address %q", mint)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	metrics := observability.NewMetrics("")
	pool, err := buildPool(cfg, metrics, logger)
	if err != nil {
		return err
	}
	sd, err := buildScreen(ctx, cfg, pool, metrics, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sd.close() }()

	verdict, err := sd.screen.Evaluate(ctx, mint)
	if err != nil {
		return fmt.Errorf("screening failed: %w", err)
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}
	return printVerdict(os.Stdout, verdict)
}

// printVerdict writes a verdict as an aligned table, checks in screening order.
func printVerdict(out io.Writer, v *domain.SafetyVerdict) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CHECK\tOUTCOME\tHARD\tSCORE\tREASON\n")
	for _, name := range domain.CheckOrder {
		r, ok := v.Checks[name]
		if !ok {
			continue
		}
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%.1f", *r.Score)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", name, r.Outcome, r.Hard, score, r.Reason)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	decision := "ACCEPTED"
	if !v.Accepted {
		decision = "REJECTED"
	}
	fmt.Fprintf(out, "\n%s  score=%d", decision, v.CompositeScore)
	if v.RejectionReason != "" {
		fmt.Fprintf(out, "  reason=%s", v.RejectionReason)
	}
	_, err := fmt.Fprintln(out)
	return err
}
