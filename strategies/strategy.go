// Package strategies defines the signal contract and the concrete trading
// strategies: trend-following breakout, oscillator mean-reversion, and a
// composite that combines children under a voting policy.
package strategies

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mhlam/tradeflow/market"
)

// Action is a strategy's verdict for one symbol at one timestep.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Trade tags partition signals across timeframes: "SWING" decisions belong to
// the slow loop, "T" rebalances to the intraday loop.
const (
	TagSwing = "SWING"
	TagT     = "T"
)

// Signal is one strategy verdict. Optional members are pointers so presence
// is checkable: a nil TargetRatio means "the sizer decides", a zero one means
// "liquidate".
type Signal struct {
	Action  Action
	Price   float64
	Reason  string
	Factors map[string]float64
	// TradeTag is free-form; the simulation loops only interpret "T".
	TradeTag     string
	TargetRatio  *float64
	TargetShares *int
}

// Hold builds the neutral signal with a reason.
func Hold(reason string) Signal {
	return Signal{Action: ActionHold, Reason: reason}
}

// Ratio is a convenience for building optional target ratios.
func Ratio(v float64) *float64 { return &v }

// Shares is a convenience for building optional share targets.
func Shares(n int) *int { return &n }

// Strategy produces a Signal from a symbol and its price history. Analyze is
// called once per symbol per timestep with a growing, never-shrinking window;
// any internal memory (entry prices, trailing highs) is the strategy's own.
type Strategy interface {
	Name() string
	Analyze(symbol string, series *market.Series) (Signal, error)
}

// Params carries strategy construction parameters from config. Unknown keys
// are ignored by constructors.
type Params map[string]any

// Constructor builds a strategy from config parameters.
type Constructor func(p Params) (Strategy, error)

var (
	regMu    sync.RWMutex
	registry = make(map[string]Constructor)
)

// Register makes a strategy constructor available under name. Called from
// init functions; registering a duplicate name panics.
func Register(name string, c Constructor) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("strategies: duplicate registration for " + name)
	}
	registry[name] = c
}

// New builds a registered strategy by name.
func New(name string, p Params) (Strategy, error) {
	regMu.RLock()
	c, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategies: unknown strategy %q (have %v)", name, Names())
	}
	return c(p)
}

// Names lists the registered strategy names, sorted.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
