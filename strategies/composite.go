package strategies

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mhlam/tradeflow/market"
)

// Composite decision modes.
const (
	ModeConsensus = "consensus" // every child must agree
	ModeAny       = "any"       // one trigger suffices, sells outrank buys
	ModeVote      = "vote"      // strict majority
)

// Composite merges the verdicts of several child strategies under one
// decision mode. A failing child is treated as HOLD so one bad indicator
// cannot veto the whole committee.
type Composite struct {
	children []Strategy
	mode     string
	log      *slog.Logger
}

// CompositeOption configures a Composite.
type CompositeOption func(*Composite)

// WithCompositeLogger routes child-failure warnings to log.
func WithCompositeLogger(log *slog.Logger) CompositeOption {
	return func(c *Composite) {
		if log != nil {
			c.log = log
		}
	}
}

// NewComposite builds a committee over children. Composites are assembled
// from configured child strategies, so they do not go through Register.
func NewComposite(mode string, children []Strategy, opts ...CompositeOption) (*Composite, error) {
	switch mode {
	case ModeConsensus, ModeAny, ModeVote:
	default:
		return nil, fmt.Errorf("strategies: unknown composite mode %q", mode)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("strategies: composite needs at least one child")
	}
	c := &Composite{children: children, mode: mode, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Composite) Name() string { return "Composite" }

func (c *Composite) Analyze(symbol string, series *market.Series) (Signal, error) {
	votes := make([]Signal, 0, len(c.children))
	reasons := make([]string, 0, len(c.children))
	factors := make(map[string]float64)

	var buys, sells int
	for _, child := range c.children {
		sig, err := child.Analyze(symbol, series)
		if err != nil {
			c.log.Warn("composite child failed", "child", child.Name(), "symbol", symbol, "err", err)
			sig = Hold("error")
		}
		votes = append(votes, sig)
		reasons = append(reasons, fmt.Sprintf("%s: %s", child.Name(), sig.Action))
		for k, v := range sig.Factors {
			factors[child.Name()+"."+k] = v
		}
		switch sig.Action {
		case ActionBuy:
			buys++
		case ActionSell:
			sells++
		}
	}

	var price float64
	if !series.Empty() {
		price = series.Last().Close
	}
	joined := strings.Join(reasons, " | ")
	total := len(votes)

	decide := func(action Action, label string) (Signal, error) {
		return Signal{
			Action:  action,
			Price:   price,
			Reason:  fmt.Sprintf("%s: %s", label, joined),
			Factors: factors,
		}, nil
	}

	switch c.mode {
	case ModeConsensus:
		if buys == total {
			return decide(ActionBuy, "unanimous buy")
		}
		if sells == total {
			return decide(ActionSell, "unanimous sell")
		}
	case ModeAny:
		// Risk management first: any sell outranks any buy.
		if sells > 0 {
			return decide(ActionSell, "any-trigger sell")
		}
		if buys > 0 {
			return decide(ActionBuy, "any-trigger buy")
		}
	case ModeVote:
		if float64(buys) > float64(total)/2 {
			return decide(ActionBuy, "majority buy")
		}
		if float64(sells) > float64(total)/2 {
			return decide(ActionSell, "majority sell")
		}
	}

	return Signal{
		Action:  ActionHold,
		Reason:  fmt.Sprintf("no clear signal (%s): %s", c.mode, joined),
		Factors: factors,
	}, nil
}
