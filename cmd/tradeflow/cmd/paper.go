package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mhlam/tradeflow/config"
	"github.com/mhlam/tradeflow/datafeed"
	"github.com/mhlam/tradeflow/internal/logger"
	"github.com/mhlam/tradeflow/notify"
	"github.com/mhlam/tradeflow/paper"
	"github.com/mhlam/tradeflow/persist"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Paper trade the configured strategy",
	Long: `Paper runs the strategy in a live-shaped polling loop against the CSV
feed, routing signals into a simulated account. The account snapshot is
persisted after every scan, so a restarted session carries its positions.

Stop with ctrl-c; the session shuts down between scans.

Example:
  tradeflow paper -f tradeflow.yaml --trace`,
	RunE: runPaperCmd,
}

var (
	paperConfigPath string
	paperTrace      bool
)

func init() {
	rootCmd.AddCommand(paperCmd)

	paperCmd.Flags().StringVarP(&paperConfigPath, "config", "f", "", "config file (default $TRADEFLOW_CONFIG, then tradeflow.yaml)")
	paperCmd.Flags().BoolVar(&paperTrace, "trace", false, "emit pretty-printed spans for every scan cycle")
}

func runPaperCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath(paperConfigPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.Default()
	strat, err := cfg.BuildStrategy(log)
	if err != nil {
		return fmt.Errorf("build strategy: %w", err)
	}

	interval, err := cfg.Monitor.IntervalDuration()
	if err != nil {
		return fmt.Errorf("monitor interval: %w", err)
	}
	delay, err := cfg.Monitor.RequestDelayDuration()
	if err != nil {
		return fmt.Errorf("monitor request_delay: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []paper.Option{
		paper.WithLogger(log),
		paper.WithNotifier(notify.NewLogNotifier(log)),
	}
	if cfg.Monitor.SnapshotPath != "" {
		opts = append(opts, paper.WithStore(persist.NewStore(cfg.Monitor.SnapshotPath)))
	}
	if paperTrace {
		tracer, shutdown, err := logger.StartTracing(ctx, "tradeflow", version)
		if err != nil {
			return fmt.Errorf("start tracing: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
		opts = append(opts, paper.WithTracer(tracer))
	}

	runner, err := paper.New(datafeed.NewCSVFeed(cfg.Data.Dir), strat, paper.Config{
		InitialCapital:      cfg.Account.InitialCapital,
		CommissionRate:      cfg.Account.CommissionRate,
		Sizing:              cfg.Sizing,
		Lots:                cfg.Trading.LotSizes,
		Symbols:             cfg.Trading.Symbols,
		Period:              cfg.Monitor.Period,
		HistoryCount:        cfg.Monitor.HistoryCount,
		Interval:            interval,
		RequestDelay:        delay,
		TMaxPerSymbolPerDay: cfg.Trading.TMaxPerSymbolPerDay,
	}, opts...)
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	fmt.Printf("Paper trading %s on %s every %s (ctrl-c to stop)\n",
		strat.Name(), strings.Join(cfg.Trading.Symbols, ", "), interval)
	if cfg.Monitor.SnapshotPath != "" {
		fmt.Printf("  Snapshot: %s\n", cfg.Monitor.SnapshotPath)
	}
	fmt.Println()

	return runner.Run(ctx)
}
