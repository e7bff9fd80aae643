package strategies

import (
	"fmt"

	"github.com/mhlam/tradeflow/indicators"
	"github.com/mhlam/tradeflow/market"
)

func init() {
	Register("MACD", NewMACD)
}

// MACD trades DIF/DEA line crosses: a cross above is a buy, a cross below a
// sell. Stateless, so safe to share across symbols.
type MACD struct {
	fast   int
	slow   int
	signal int
}

// NewMACD builds the strategy from params fast/slow/signal (12/26/9 default).
func NewMACD(p Params) (Strategy, error) {
	s := &MACD{
		fast:   p.Int("fast", 12),
		slow:   p.Int("slow", 26),
		signal: p.Int("signal", 9),
	}
	if s.fast <= 0 || s.slow <= 0 || s.signal <= 0 {
		return nil, fmt.Errorf("strategies: MACD periods must be positive (fast=%d slow=%d signal=%d)", s.fast, s.slow, s.signal)
	}
	if s.fast >= s.slow {
		return nil, fmt.Errorf("strategies: MACD fast period %d must be below slow period %d", s.fast, s.slow)
	}
	return s, nil
}

func (s *MACD) Name() string { return "MACD" }

// minLen is the shortest history that yields a usable signal line.
func (s *MACD) minLen() int { return s.slow + s.signal }

func (s *MACD) Analyze(symbol string, series *market.Series) (Signal, error) {
	if series == nil || series.Len() < s.minLen() {
		return Hold("insufficient history"), nil
	}

	closes := series.Closes()
	dif, dea, hist := indicators.MACD(closes, s.fast, s.slow, s.signal)
	if dif == nil {
		return Hold("insufficient history"), nil
	}

	last := len(closes) - 1
	prev := last - 1
	close := closes[last]

	factors := map[string]float64{
		"dif":  dif[last],
		"dea":  dea[last],
		"macd": hist[last] * 2,
	}

	switch {
	case dif[prev] < dea[prev] && dif[last] > dea[last]:
		return Signal{
			Action:  ActionBuy,
			Price:   close,
			Reason:  fmt.Sprintf("MACD bullish cross (DIF %.3f > DEA %.3f)", dif[last], dea[last]),
			Factors: factors,
		}, nil
	case dif[prev] > dea[prev] && dif[last] < dea[last]:
		return Signal{
			Action:  ActionSell,
			Price:   close,
			Reason:  fmt.Sprintf("MACD bearish cross (DIF %.3f < DEA %.3f)", dif[last], dea[last]),
			Factors: factors,
		}, nil
	}
	return Hold("no signal"), nil
}
