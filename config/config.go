// Package config loads, validates, and writes the toolkit configuration.
// Files are YAML by default with a JSON fallback, so either works.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mhlam/tradeflow/market"
	"github.com/mhlam/tradeflow/risk"
	"github.com/mhlam/tradeflow/strategies"
)

// Config is the complete toolkit configuration.
type Config struct {
	Account  AccountConfig     `json:"account" yaml:"account"`
	Backtest BacktestConfig    `json:"backtest" yaml:"backtest"`
	Trading  TradingConfig     `json:"trading" yaml:"trading"`
	Sizing   risk.SizingConfig `json:"sizing" yaml:"sizing"`
	Strategy StrategyConfig    `json:"strategy" yaml:"strategy"`
	Data     DataConfig        `json:"data" yaml:"data"`
	Monitor  MonitorConfig     `json:"monitor" yaml:"monitor"`
	Journal  JournalConfig     `json:"journal" yaml:"journal"`
}

// AccountConfig seeds the simulated account.
type AccountConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
}

// BacktestConfig bounds the historical run. Start and End are dates
// ("2006-01-02") or timestamps ("2006-01-02 15:04:05"); empty means
// unbounded on that side.
type BacktestConfig struct {
	Start          string               `json:"start,omitempty" yaml:"start,omitempty"`
	End            string               `json:"end,omitempty" yaml:"end,omitempty"`
	WarmupDays     int                  `json:"warmup_days" yaml:"warmup_days"`
	MultiTimeframe MultiTimeframeConfig `json:"multi_timeframe" yaml:"multi_timeframe"`
}

// MultiTimeframeConfig switches the backtest to the two-loop replay: daily
// swing decisions plus intraday "T" rebalances.
type MultiTimeframeConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	SwingPeriod    market.Period `json:"swing_period,omitempty" yaml:"swing_period,omitempty"`
	IntradayPeriod market.Period `json:"intraday_period,omitempty" yaml:"intraday_period,omitempty"`
}

// TradingConfig names the universe and its trading constraints.
type TradingConfig struct {
	Symbols             []string        `json:"symbols" yaml:"symbols"`
	LotSizes            market.LotSizes `json:"lot_sizes,omitempty" yaml:"lot_sizes,omitempty"`
	TMaxPerSymbolPerDay int             `json:"t_max_per_symbol_per_day" yaml:"t_max_per_symbol_per_day"`
}

// StrategyConfig selects and parameterizes the strategy. With children set,
// a composite is built and Mode picks the decision rule.
type StrategyConfig struct {
	Name     string            `json:"name" yaml:"name"`
	Params   strategies.Params `json:"params,omitempty" yaml:"params,omitempty"`
	Mode     string            `json:"mode,omitempty" yaml:"mode,omitempty"`
	Children []ChildStrategy   `json:"children,omitempty" yaml:"children,omitempty"`
}

// ChildStrategy is one member of a composite.
type ChildStrategy struct {
	Name   string            `json:"name" yaml:"name"`
	Params strategies.Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// DataConfig locates candle files for the CSV feed.
type DataConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// MonitorConfig shapes the paper-trading poll loop. Interval and
// RequestDelay are duration strings ("60s", "500ms").
type MonitorConfig struct {
	Period       market.Period `json:"period" yaml:"period"`
	HistoryCount int           `json:"history_count" yaml:"history_count"`
	Interval     string        `json:"interval,omitempty" yaml:"interval,omitempty"`
	RequestDelay string        `json:"request_delay,omitempty" yaml:"request_delay,omitempty"`
	SnapshotPath string        `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty"`
}

// JournalConfig selects where runs are recorded. Type "none" (or empty)
// disables journaling.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile reads and validates a configuration file. YAML is tried
// first, then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML or JSON by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration before anything is constructed from it.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Account.CommissionRate < 0 {
		return fmt.Errorf("account.commission_rate must not be negative")
	}

	start, err := c.Backtest.StartTime()
	if err != nil {
		return fmt.Errorf("backtest.start: %w", err)
	}
	end, err := c.Backtest.EndTime()
	if err != nil {
		return fmt.Errorf("backtest.end: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return fmt.Errorf("backtest.end must be after backtest.start")
	}
	if c.Backtest.WarmupDays < 0 {
		return fmt.Errorf("backtest.warmup_days must not be negative")
	}
	if mt := c.Backtest.MultiTimeframe; mt.Enabled {
		if !mt.SwingPeriod.Valid() || !mt.IntradayPeriod.Valid() {
			return fmt.Errorf("multi_timeframe requires valid swing_period and intraday_period")
		}
	}

	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols is required")
	}
	if c.Trading.TMaxPerSymbolPerDay < 0 {
		return fmt.Errorf("trading.t_max_per_symbol_per_day must not be negative")
	}

	if err := c.Sizing.Validate(); err != nil {
		return err
	}

	if c.Strategy.Name == "" && len(c.Strategy.Children) == 0 {
		return fmt.Errorf("strategy.name is required")
	}
	for _, child := range c.Strategy.Children {
		if child.Name == "" {
			return fmt.Errorf("strategy children must be named")
		}
	}

	if c.Monitor.Period != "" && !c.Monitor.Period.Valid() {
		return fmt.Errorf("monitor.period %q is not a known period", c.Monitor.Period)
	}
	if _, err := c.Monitor.IntervalDuration(); err != nil {
		return fmt.Errorf("monitor.interval: %w", err)
	}
	if _, err := c.Monitor.RequestDelayDuration(); err != nil {
		return fmt.Errorf("monitor.request_delay: %w", err)
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir required for csv journal")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	default:
		return fmt.Errorf("journal.type must be none, csv, or sqlite")
	}
	return nil
}

// BuildStrategy constructs the configured strategy, assembling a composite
// when children are present.
func (c *Config) BuildStrategy(log *slog.Logger) (strategies.Strategy, error) {
	sc := c.Strategy
	if len(sc.Children) == 0 {
		return strategies.New(sc.Name, sc.Params)
	}

	children := make([]strategies.Strategy, 0, len(sc.Children))
	for _, child := range sc.Children {
		s, err := strategies.New(child.Name, child.Params)
		if err != nil {
			return nil, err
		}
		children = append(children, s)
	}
	mode := sc.Mode
	if mode == "" {
		mode = strategies.ModeConsensus
	}
	return strategies.NewComposite(mode, children, strategies.WithCompositeLogger(log))
}

// whenLayouts are the accepted Start/End formats, parsed as UTC.
var whenLayouts = []string{"2006-01-02", "2006-01-02 15:04:05"}

func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range whenLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

// StartTime parses the run start; zero when unset.
func (b BacktestConfig) StartTime() (time.Time, error) { return parseWhen(b.Start) }

// EndTime parses the run end; zero when unset.
func (b BacktestConfig) EndTime() (time.Time, error) { return parseWhen(b.End) }

// DataPeriod is the bar period a single-timeframe backtest replays: the
// swing period when one is set, daily bars otherwise.
func (b BacktestConfig) DataPeriod() market.Period {
	if b.MultiTimeframe.SwingPeriod != "" {
		return b.MultiTimeframe.SwingPeriod
	}
	return market.PeriodDay
}

// IntervalDuration parses the polling interval, defaulting to one minute.
func (m MonitorConfig) IntervalDuration() (time.Duration, error) {
	if m.Interval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(m.Interval)
}

// RequestDelayDuration parses the per-symbol delay, defaulting to 500ms.
func (m MonitorConfig) RequestDelayDuration() (time.Duration, error) {
	if m.RequestDelay == "" {
		return 500 * time.Millisecond, nil
	}
	return time.ParseDuration(m.RequestDelay)
}

// Default returns a runnable configuration: one symbol, the trend strategy,
// CSV data in ./data, journaling disabled.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCapital: 100_000,
			CommissionRate: 0.0003,
		},
		Backtest: BacktestConfig{
			WarmupDays: 60,
			MultiTimeframe: MultiTimeframeConfig{
				SwingPeriod:    market.PeriodDay,
				IntradayPeriod: market.Period15m,
			},
		},
		Trading: TradingConfig{
			Symbols:             []string{"AAPL.US"},
			TMaxPerSymbolPerDay: 2,
		},
		Sizing: risk.DefaultSizing(),
		Strategy: StrategyConfig{
			Name: "TrendSwingT",
		},
		Data: DataConfig{Dir: "./data"},
		Monitor: MonitorConfig{
			Period:       market.Period15m,
			HistoryCount: 100,
			Interval:     "60s",
			RequestDelay: "500ms",
			SnapshotPath: "./paper_account.json",
		},
		Journal: JournalConfig{Type: "none"},
	}
}
