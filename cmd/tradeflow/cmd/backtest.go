package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhlam/tradeflow/backtest"
	"github.com/mhlam/tradeflow/config"
	"github.com/mhlam/tradeflow/datafeed"
	"github.com/mhlam/tradeflow/journal"
	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/pkg/id"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a strategy over historical candles",
	Long: `Backtest replays the configured strategy bar by bar over CSV candle
history and prints a performance summary.

With multi_timeframe enabled in the config, daily bars drive swing decisions
while intraday bars handle "T"-tagged rebalances, capped per symbol per day.

Example:
  tradeflow backtest -f tradeflow.yaml --org run.org`,
	RunE: runBacktestCmd,
}

var (
	btConfigPath string
	btOrgPath    string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "config file (default $TRADEFLOW_CONFIG, then tradeflow.yaml)")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode run report to this path")
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath(btConfigPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.Default()
	strat, err := cfg.BuildStrategy(log)
	if err != nil {
		return fmt.Errorf("build strategy: %w", err)
	}

	start, err := cfg.Backtest.StartTime()
	if err != nil {
		return fmt.Errorf("backtest start: %w", err)
	}
	end, err := cfg.Backtest.EndTime()
	if err != nil {
		return fmt.Errorf("backtest end: %w", err)
	}

	eng, err := backtest.New(strat, backtest.Config{
		InitialCapital:      cfg.Account.InitialCapital,
		CommissionRate:      cfg.Account.CommissionRate,
		Sizing:              cfg.Sizing,
		Lots:                cfg.Trading.LotSizes,
		Start:               start,
		TMaxPerSymbolPerDay: cfg.Trading.TMaxPerSymbolPerDay,
	}, backtest.WithLogger(log))
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	feed := datafeed.NewCSVFeed(cfg.Data.Dir)
	ctx := cmd.Context()

	fmt.Printf("Backtest %s on %s\n", strat.Name(), strings.Join(cfg.Trading.Symbols, ", "))
	fmt.Printf("  Data: %s\n\n", cfg.Data.Dir)

	mt := cfg.Backtest.MultiTimeframe
	if mt.Enabled {
		swing, err := loadHistory(ctx, feed, cfg.Trading.Symbols, mt.SwingPeriod, start, end, cfg.Backtest.WarmupDays, log)
		if err != nil {
			return err
		}
		// Intraday files are optional; symbols without them simply skip
		// the rebalance loop.
		intraday, err := loadHistory(ctx, feed, cfg.Trading.Symbols, mt.IntradayPeriod, start, end, 0, log)
		if err != nil {
			return err
		}
		if err := eng.RunMulti(swing, intraday); err != nil {
			return err
		}
	} else {
		data, err := loadHistory(ctx, feed, cfg.Trading.Symbols, cfg.Backtest.DataPeriod(), start, end, cfg.Backtest.WarmupDays, log)
		if err != nil {
			return err
		}
		if err := eng.Run(data); err != nil {
			return err
		}
	}

	perf := eng.Performance()
	perf.WriteSummary(os.Stdout)

	run := journal.RunRecord{
		ID:             id.New(),
		Kind:           "backtest",
		Strategy:       strat.Name(),
		Symbols:        cfg.Trading.Symbols,
		Start:          start,
		End:            end,
		CreatedAt:      time.Now().UTC(),
		InitialCapital: perf.InitialCapital,
		FinalValue:     perf.FinalValue,
		TotalReturn:    perf.TotalReturn,
		MaxDrawdown:    perf.MaxDrawdown,
		TotalOrders:    perf.TotalOrders,
		ClosedTrades:   perf.Stats.TotalTrades,
		WinRate:        perf.Stats.WinRate * 100,
	}

	if err := journalRun(cfg.Journal, run, eng); err != nil {
		return err
	}

	if btOrgPath != "" {
		f, err := os.Create(btOrgPath)
		if err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		defer f.Close()
		report := journal.Report{Run: run, Trades: eng.Ledger().Trades()}
		if err := report.WriteOrg(f); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		fmt.Printf("✓ Org report written: %s\n", btOrgPath)
	}

	return nil
}

// loadHistory fetches one series per symbol. Symbols with no data are logged
// and skipped; the engine decides whether the remainder is enough.
func loadHistory(ctx context.Context, feed datafeed.Feed, symbols []string, period market.Period, start, end time.Time, warmupDays int, log *slog.Logger) (map[string]*market.Series, error) {
	out := make(map[string]*market.Series, len(symbols))
	for _, symbol := range symbols {
		series, err := feed.History(ctx, symbol, period, start, end, warmupDays)
		if errors.Is(err, datafeed.ErrNoData) {
			log.Warn("no data for symbol", "symbol", symbol, "period", string(period))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s %s bars: %w", symbol, period, err)
		}
		out[symbol] = series
	}
	return out, nil
}

// journalRun records the run summary plus every fill and equity sample.
func journalRun(jc config.JournalConfig, run journal.RunRecord, eng *backtest.Engine) error {
	j, err := openJournal(jc)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j == nil {
		return nil
	}
	defer j.Close()

	if err := j.RecordRun(run); err != nil {
		return fmt.Errorf("journal run: %w", err)
	}
	for _, trade := range eng.Ledger().Trades() {
		if err := j.RecordTrade(run.ID, trade); err != nil {
			return fmt.Errorf("journal trade: %w", err)
		}
	}
	for _, sample := range eng.EquityCurve() {
		if err := j.RecordEquity(run.ID, sample.Time, sample.Equity); err != nil {
			return fmt.Errorf("journal equity: %w", err)
		}
	}
	fmt.Printf("✓ Run journaled: %s\n", run.ID)
	return nil
}
