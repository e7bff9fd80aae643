package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhlam/tradeflow/config"
	"github.com/mhlam/tradeflow/journal"
)

var rootCmd = &cobra.Command{
	Use:   "tradeflow",
	Short: "An event-driven trading research toolkit",
	Long: `Tradeflow is a research toolkit for retail algorithmic trading.

It provides tools for:
  - Backtesting strategies bar by bar over CSV candle history
  - Multi-timeframe replays with capped intraday "T" rebalances
  - Paper trading against a live-shaped polling loop
  - Journaling runs to SQLite or CSV with Org-mode reports
  - Risk-based position sizing on a simulated cash account`,
}

// Execute runs the root command with all children registered.
func Execute() error {
	return rootCmd.Execute()
}

// configPath resolves the config file: the flag wins, then the
// TRADEFLOW_CONFIG variable, then tradeflow.yaml beside the process.
func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("TRADEFLOW_CONFIG"); env != "" {
		return env
	}
	return "tradeflow.yaml"
}

// openJournal builds the configured journal backend. Type "none" or empty
// returns nil, meaning journaling is off.
func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch strings.ToLower(strings.TrimSpace(jc.Type)) {
	case "", "none":
		return nil, nil
	case "csv":
		return journal.NewCSV(jc.Dir)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q", jc.Type)
	}
}
