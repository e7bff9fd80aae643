// Package risk turns strategy signals into lot-aligned order quantities under
// a volatility-scaled position budget.
package risk

import (
	"fmt"
	"math"

	"github.com/mhlam/tradeflow/strategies"
)

// SizingConfig is the static risk budget for a run.
type SizingConfig struct {
	// BaseRatio is the flat target used when a signal carries no volatility
	// factors at all.
	BaseRatio float64 `yaml:"base_ratio" json:"base_ratio"`
	// MaxRatio caps the equity fraction allocated to one symbol.
	MaxRatio          float64 `yaml:"max_ratio" json:"max_ratio"`
	RiskPerTrade      float64 `yaml:"risk_per_trade" json:"risk_per_trade"`
	ATRStopMultiple   float64 `yaml:"atr_stop_multiple" json:"atr_stop_multiple"`
	MinRebalanceRatio float64 `yaml:"min_rebalance_ratio" json:"min_rebalance_ratio"`
}

// DefaultSizing returns the stock configuration.
func DefaultSizing() SizingConfig {
	return SizingConfig{
		BaseRatio:         0.20,
		MaxRatio:          0.25,
		RiskPerTrade:      0.01,
		ATRStopMultiple:   2.5,
		MinRebalanceRatio: 0.05,
	}
}

// Validate rejects unusable parameters. Construction-time failure, per the
// error taxonomy: a sizer never runs with a broken budget.
func (c SizingConfig) Validate() error {
	if c.BaseRatio <= 0 || c.BaseRatio > 1 {
		return fmt.Errorf("risk: base_ratio %.4f outside (0, 1]", c.BaseRatio)
	}
	if c.MaxRatio <= 0 || c.MaxRatio > 1 {
		return fmt.Errorf("risk: max_ratio %.4f outside (0, 1]", c.MaxRatio)
	}
	if c.BaseRatio > c.MaxRatio {
		return fmt.Errorf("risk: base_ratio %.4f exceeds max_ratio %.4f", c.BaseRatio, c.MaxRatio)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > 1 {
		return fmt.Errorf("risk: risk_per_trade %.4f outside (0, 1]", c.RiskPerTrade)
	}
	if c.ATRStopMultiple <= 0 {
		return fmt.Errorf("risk: atr_stop_multiple %.4f must be positive", c.ATRStopMultiple)
	}
	if c.MinRebalanceRatio <= 0 || c.MinRebalanceRatio >= 1 {
		return fmt.Errorf("risk: min_rebalance_ratio %.4f outside (0, 1)", c.MinRebalanceRatio)
	}
	return nil
}

// Volatility scaling anchors: a 2% ATR/price ratio earns the full MaxRatio,
// and the ratio is floored at 0.5% so quiet symbols cannot blow past the cap.
const (
	volAnchor = 0.02
	volFloor  = 0.005
)

// tRebalanceFloor is the stricter minimum-change fraction applied to "T"
// tagged intraday rebalances.
const tRebalanceFloor = 0.10

// Sizer converts signals to quantities. It is pure: identical inputs always
// produce identical output, and nothing is cached between calls.
type Sizer struct {
	cfg SizingConfig
}

// NewSizer validates the configuration and returns a sizer.
func NewSizer(cfg SizingConfig) (*Sizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sizer{cfg: cfg}, nil
}

// Config returns the sizing parameters in use.
func (s *Sizer) Config() SizingConfig { return s.cfg }

// TargetRatio resolves the fraction of equity a signal wants allocated. An
// explicit ratio on the signal wins. Otherwise the ratio is derived from the
// "atr" and "close" factors: higher volatility, smaller target. Signals with
// no usable volatility degrade to the flat base ratio; understating risk in
// data gaps is the documented trade-off of that fallback.
func (s *Sizer) TargetRatio(sig strategies.Signal) float64 {
	if sig.TargetRatio != nil {
		return *sig.TargetRatio
	}

	price := sig.Factors["close"]
	atr := sig.Factors["atr"]
	if price <= 0 || atr <= 0 {
		return math.Min(s.cfg.BaseRatio, s.cfg.MaxRatio)
	}

	volRatio := atr / price
	scaled := s.cfg.MaxRatio * (volAnchor / math.Max(volRatio, volFloor))
	return math.Max(0, math.Min(s.cfg.MaxRatio, scaled))
}

// OrderQuantity turns a BUY/SELL signal into a concrete share count.
//
// BUY moves the position up toward the target, bounded by available cash.
// SELL moves it down toward the explicit target, or liquidates when the
// signal names none. Changes smaller than the minimum-rebalance threshold
// are suppressed to avoid churn; "T" rebalances use a stricter floor.
// The result is always a non-negative multiple of lotSize.
func (s *Sizer) OrderQuantity(action strategies.Action, currentPos int, price, totalEquity, availableCash float64, lotSize int, sig strategies.Signal) int {
	if price <= 0 || totalEquity <= 0 {
		return 0
	}

	var target int
	if sig.TargetShares != nil {
		target = *sig.TargetShares
		if target < 0 {
			target = 0
		}
	} else {
		target = int(totalEquity * s.TargetRatio(sig) / price)
	}
	target = alignLot(target, lotSize)

	var delta int
	switch action {
	case strategies.ActionBuy:
		delta = target - currentPos
		if delta <= 0 {
			return 0
		}
		affordable := alignLot(int(availableCash/price), lotSize)
		if delta > affordable {
			delta = affordable
		}
		delta = alignLot(delta, lotSize)

	case strategies.ActionSell:
		if sig.TargetShares != nil || sig.TargetRatio != nil {
			delta = currentPos - target
		} else {
			delta = currentPos
		}
		if delta <= 0 {
			return 0
		}
		if delta > currentPos {
			delta = currentPos
		}
		delta = alignLot(delta, lotSize)

	default:
		return 0
	}

	floor := float64(max(1, currentPos))
	minChange := alignLot(int(floor*s.cfg.MinRebalanceRatio), lotSize)
	if sig.TradeTag == strategies.TagT {
		if strict := alignLot(int(floor*tRebalanceFloor), lotSize); strict > minChange {
			minChange = strict
		}
	}
	if delta < minChange {
		return 0
	}
	return delta
}

// alignLot floors qty to a multiple of lot. Non-positive quantities are 0.
func alignLot(qty, lot int) int {
	if qty <= 0 {
		return 0
	}
	if lot <= 1 {
		return qty
	}
	return qty / lot * lot
}
