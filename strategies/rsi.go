package strategies

import (
	"fmt"

	"github.com/mhlam/tradeflow/indicators"
	"github.com/mhlam/tradeflow/market"
)

func init() {
	Register("RSI", NewRSI)
}

// RSI is plain oscillator mean-reversion: buy oversold, sell overbought.
type RSI struct {
	period     int
	overbought float64
	oversold   float64
}

// NewRSI builds the strategy from params period/overbought/oversold
// (14/70/30 default).
func NewRSI(p Params) (Strategy, error) {
	s := &RSI{
		period:     p.Int("period", 14),
		overbought: p.Float("overbought", 70),
		oversold:   p.Float("oversold", 30),
	}
	if s.period <= 0 {
		return nil, fmt.Errorf("strategies: RSI period must be positive, got %d", s.period)
	}
	if s.oversold >= s.overbought {
		return nil, fmt.Errorf("strategies: RSI oversold %.1f must be below overbought %.1f", s.oversold, s.overbought)
	}
	return s, nil
}

func (s *RSI) Name() string { return "RSI" }

func (s *RSI) Analyze(symbol string, series *market.Series) (Signal, error) {
	if series == nil || series.Len() < s.period+1 {
		return Hold("insufficient history"), nil
	}

	closes := series.Closes()
	rsi := indicators.RSI(closes, s.period)
	if rsi == nil {
		return Hold("insufficient history"), nil
	}

	last := len(closes) - 1
	close := closes[last]
	value := rsi[last]

	switch {
	case value < s.oversold:
		return Signal{
			Action: ActionBuy,
			Price:  close,
			Reason: fmt.Sprintf("RSI oversold (%.2f < %.0f)", value, s.oversold),
			Factors: map[string]float64{
				"rsi":       value,
				"threshold": s.oversold,
			},
		}, nil
	case value > s.overbought:
		return Signal{
			Action: ActionSell,
			Price:  close,
			Reason: fmt.Sprintf("RSI overbought (%.2f > %.0f)", value, s.overbought),
			Factors: map[string]float64{
				"rsi":       value,
				"threshold": s.overbought,
			},
		}, nil
	}
	return Hold(fmt.Sprintf("RSI neutral (%.2f)", value)), nil
}
