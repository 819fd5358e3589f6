// Package main is the sniper CLI: the trading session, one-off screening,
// the session report and the operator close-all tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-sniper/internal/config"
	"solana-sniper/internal/observability"
)

var configPath string

// rootCmd is the base command for the sniper CLI
var rootCmd = &cobra.Command{
	Use:   "sniper",
	Short: "Solana launch sniper",
	Long: `sniper watches the pump.fun program for new token launches, screens each
candidate against external risk sources and trades accepted ones under
take-profit, stop-loss and timeout exit rules.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SNIPER_CONFIG"), "Path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
