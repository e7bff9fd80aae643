package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhlam/tradeflow/backtest"
	"github.com/mhlam/tradeflow/datafeed"
	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/risk"
	"github.com/mhlam/tradeflow/strategies"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a self-contained backtest on generated candles",
	Long: `Demo backtests a strategy over deterministic random-walk candles, so it
needs no data files. The same seed always produces the same candles and
therefore the same result.

Examples:
  tradeflow demo
  tradeflow demo --strategy MACD --days 500 --seed 7`,
	RunE: runDemoCmd,
}

var (
	demoSeed     int64
	demoDays     int
	demoCapital  float64
	demoStrategy string
	demoSymbols  []string
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Int64Var(&demoSeed, "seed", 42, "random walk seed")
	demoCmd.Flags().IntVar(&demoDays, "days", 365, "calendar days to replay")
	demoCmd.Flags().Float64Var(&demoCapital, "capital", 100_000, "starting capital")
	demoCmd.Flags().StringVarP(&demoStrategy, "strategy", "s", "TrendSwingT", "strategy name")
	demoCmd.Flags().StringSliceVar(&demoSymbols, "symbols", []string{"AAPL.US", "MSFT.US", "NVDA.US"}, "symbols to generate")
}

func runDemoCmd(cmd *cobra.Command, args []string) error {
	strat, err := strategies.New(demoStrategy, nil)
	if err != nil {
		return err
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -demoDays)

	eng, err := backtest.New(strat, backtest.Config{
		InitialCapital: demoCapital,
		CommissionRate: 0.0003,
		Sizing:         risk.DefaultSizing(),
		Start:          start,
	}, backtest.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	feed := datafeed.NewRandomFeed(demoSeed)
	data, err := loadHistory(cmd.Context(), feed, demoSymbols, market.PeriodDay, start, end, 60, slog.Default())
	if err != nil {
		return err
	}

	fmt.Printf("Demo backtest: %s over %d days, seed %d\n\n", strat.Name(), demoDays, demoSeed)
	if err := eng.Run(data); err != nil {
		return err
	}

	eng.Performance().WriteSummary(os.Stdout)
	return nil
}
