package strategies

import (
	"fmt"
	"math"

	"github.com/mhlam/tradeflow/indicators"
	"github.com/mhlam/tradeflow/market"
)

func init() {
	Register("TrendSwingT", NewTrendSwingT)
}

// TrendSwingT is the flagship strategy: Donchian breakout entries filtered by
// EMA trend and ADX strength, ATR-based hard and trailing stops, one scale-out
// at a fixed R multiple, and optional low-frequency intraday rebalances
// (tagged "T") around the swing position.
//
// It keeps per-symbol memory (entry price, trailing high, daily T budget), so
// one instance must see each symbol's bars in order. Not safe for concurrent
// use; the simulation loops are single-threaded by contract.
type TrendSwingT struct {
	emaFastPeriod  int
	emaSlowPeriod  int
	adxPeriod      int
	adxThreshold   float64
	donchianPeriod int
	atrPeriod      int
	atrStopLoss    float64
	atrTrailing    float64
	tpRMultiple    float64
	tpRatio        float64
	enableT        bool
	tRSIPeriod     int
	tOverbought    float64
	tOversold      float64
	tStepRatio     float64
	baseRatio      float64

	entry     map[string]float64
	trailHigh map[string]float64
	tp1Done   map[string]bool
	tLastDate map[string]string
	tCount    map[string]int
	baseTgt   map[string]float64
}

// NewTrendSwingT builds the strategy from params; every knob has the stock
// default so an empty map is a valid configuration.
func NewTrendSwingT(p Params) (Strategy, error) {
	s := &TrendSwingT{
		emaFastPeriod:  p.Int("ema_fast", 20),
		emaSlowPeriod:  p.Int("ema_slow", 60),
		adxPeriod:      p.Int("adx_period", 14),
		adxThreshold:   p.Float("adx_threshold", 20),
		donchianPeriod: p.Int("donchian_period", 20),
		atrPeriod:      p.Int("atr_period", 14),
		atrStopLoss:    p.Float("atr_stop_loss", 2.5),
		atrTrailing:    p.Float("atr_trailing", 3.0),
		tpRMultiple:    p.Float("take_profit_r_multiple_1", 2.0),
		tpRatio:        p.Float("take_profit_ratio_1", 0.5),
		enableT:        p.Bool("enable_t", true),
		tRSIPeriod:     p.Int("t_rsi_period", 6),
		tOverbought:    p.Float("t_overbought", 75),
		tOversold:      p.Float("t_oversold", 25),
		tStepRatio:     p.Float("t_step_ratio", 0.10),
		baseRatio:      p.Float("base_target_position_ratio", 0.20),

		entry:     make(map[string]float64),
		trailHigh: make(map[string]float64),
		tp1Done:   make(map[string]bool),
		tLastDate: make(map[string]string),
		tCount:    make(map[string]int),
		baseTgt:   make(map[string]float64),
	}

	if s.emaFastPeriod <= 0 || s.emaSlowPeriod <= 0 {
		return nil, fmt.Errorf("strategies: TrendSwingT EMA periods must be positive")
	}
	if s.emaFastPeriod >= s.emaSlowPeriod {
		return nil, fmt.Errorf("strategies: TrendSwingT fast EMA %d must be below slow EMA %d", s.emaFastPeriod, s.emaSlowPeriod)
	}
	if s.adxThreshold <= 0 {
		return nil, fmt.Errorf("strategies: TrendSwingT ADX threshold must be positive")
	}
	if s.atrStopLoss <= 0 || s.atrTrailing <= 0 {
		return nil, fmt.Errorf("strategies: TrendSwingT ATR stop multiples must be positive")
	}
	if s.baseRatio <= 0 || s.baseRatio > 1 {
		return nil, fmt.Errorf("strategies: TrendSwingT base target ratio %.4f outside (0, 1]", s.baseRatio)
	}
	return s, nil
}

func (s *TrendSwingT) Name() string { return "TrendSwingT" }

// minLen leaves a few bars of slack past the longest indicator warmup.
func (s *TrendSwingT) minLen() int {
	n := s.emaSlowPeriod
	for _, p := range []int{s.donchianPeriod, s.atrPeriod, 2*s.adxPeriod + 1} {
		if p > n {
			n = p
		}
	}
	return n + 5
}

func (s *TrendSwingT) Analyze(symbol string, series *market.Series) (Signal, error) {
	if series == nil || series.Len() < s.minLen() {
		return Hold("insufficient history"), nil
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()

	emaFast := indicators.EMA(closes, s.emaFastPeriod)
	emaSlow := indicators.EMA(closes, s.emaSlowPeriod)
	adx := indicators.ADX(highs, lows, closes, s.adxPeriod)
	atr := indicators.ATR(highs, lows, closes, s.atrPeriod)
	donHigh, _, _ := indicators.Donchian(highs, lows, s.donchianPeriod)
	if emaFast == nil || emaSlow == nil || adx == nil || atr == nil || donHigh == nil {
		return Hold("insufficient history"), nil
	}

	last := series.Len() - 1
	close := closes[last]
	ef := emaFast[last]
	es := emaSlow[last]
	trendStrength := adx[last]
	volatility := atr[last]
	prevDonHigh := donHigh[last-1]

	entryPrice := s.entry[symbol]
	hasPos := entryPrice > 0
	trendUp := ef > es && trendStrength >= s.adxThreshold

	if hasPos {
		th, ok := s.trailHigh[symbol]
		if !ok {
			th = close
		}
		th = math.Max(th, close)
		s.trailHigh[symbol] = th

		r := volatility
		if r <= 0 {
			r = math.Max(entryPrice*0.02, 0.01)
		}
		hardStop := math.Max(entryPrice-s.atrStopLoss*r, th-s.atrTrailing*r)

		if close <= hardStop || ef < es {
			kind := "stop hit"
			if close > hardStop {
				kind = "trend break"
			}
			s.reset(symbol)
			return Signal{
				Action:      ActionSell,
				Price:       close,
				Reason:      fmt.Sprintf("exit, %s (close=%.2f stop=%.2f)", kind, close, hardStop),
				TradeTag:    TagSwing,
				TargetRatio: Ratio(0),
				Factors: map[string]float64{
					"close":    close,
					"entry":    entryPrice,
					"atr":      volatility,
					"stop":     hardStop,
					"ema_fast": ef,
					"ema_slow": es,
					"adx":      trendStrength,
				},
			}, nil
		}

		if tpPrice := entryPrice + s.tpRMultiple*r; !s.tp1Done[symbol] && close >= tpPrice {
			s.tp1Done[symbol] = true
			base := s.baseFor(symbol)
			return Signal{
				Action:      ActionSell,
				Price:       close,
				Reason:      fmt.Sprintf("scale out at %.1fR (tp=%.2f)", s.tpRMultiple, tpPrice),
				TradeTag:    TagSwing,
				TargetRatio: Ratio(base * s.tpRatio),
				Factors: map[string]float64{
					"close": close,
					"entry": entryPrice,
					"atr":   volatility,
					"tp1":   tpPrice,
				},
			}, nil
		}

		if s.enableT {
			if sig, ok := s.analyzeT(symbol, series, closes, close, ef, volatility); ok {
				return sig, nil
			}
		}
	}

	if !hasPos && trendUp && close > prevDonHigh {
		s.entry[symbol] = close
		s.trailHigh[symbol] = close
		s.tp1Done[symbol] = false
		s.baseTgt[symbol] = s.baseRatio
		return Signal{
			Action:      ActionBuy,
			Price:       close,
			Reason:      fmt.Sprintf("breakout above %d-bar Donchian high", s.donchianPeriod),
			TradeTag:    TagSwing,
			TargetRatio: Ratio(s.baseRatio),
			Factors: map[string]float64{
				"close":              close,
				"atr":                volatility,
				"ema_fast":           ef,
				"ema_slow":           es,
				"adx":                trendStrength,
				"donchian_prev_high": prevDonHigh,
			},
		}, nil
	}

	up := 0.0
	if trendUp {
		up = 1
	}
	return Signal{
		Action: ActionHold,
		Reason: "no signal",
		Factors: map[string]float64{
			"close":    close,
			"ema_fast": ef,
			"ema_slow": es,
			"adx":      trendStrength,
			"trend_up": up,
		},
	}, nil
}

// analyzeT checks the low-frequency intraday rebalance: trim into an
// overbought stretch, add into an oversold dip, at most twice per day.
// The NaN warmup values of the fast RSI fail both comparisons, which is
// the intended no-op.
func (s *TrendSwingT) analyzeT(symbol string, series *market.Series, closes []float64, close, emaFast, volatility float64) (Signal, bool) {
	date := series.Last().Time.Format("2006-01-02")
	if s.tLastDate[symbol] != date {
		s.tLastDate[symbol] = date
		s.tCount[symbol] = 0
	}
	if s.tCount[symbol] >= 2 {
		return Signal{}, false
	}

	fast := indicators.RollingRSI(closes, s.tRSIPeriod)
	if fast == nil {
		return Signal{}, false
	}
	rsiFast := fast[len(fast)-1]

	deviation := 0.0
	if emaFast > 0 {
		deviation = close/emaFast - 1
	}
	base := s.baseFor(symbol)
	factors := map[string]float64{
		"rsi_fast":  rsiFast,
		"deviation": deviation,
		"close":     close,
		"atr":       volatility,
	}

	if rsiFast >= s.tOverbought && deviation > 0.01 {
		s.tCount[symbol]++
		return Signal{
			Action:      ActionSell,
			Price:       close,
			Reason:      fmt.Sprintf("T trim: RSI%d=%.1f overbought", s.tRSIPeriod, rsiFast),
			TradeTag:    TagT,
			TargetRatio: Ratio(math.Max(0, base*(1-s.tStepRatio))),
			Factors:     factors,
		}, true
	}
	if rsiFast <= s.tOversold && deviation < -0.01 {
		s.tCount[symbol]++
		return Signal{
			Action:      ActionBuy,
			Price:       close,
			Reason:      fmt.Sprintf("T add: RSI%d=%.1f oversold", s.tRSIPeriod, rsiFast),
			TradeTag:    TagT,
			TargetRatio: Ratio(base * (1 + s.tStepRatio)),
			Factors:     factors,
		}, true
	}
	return Signal{}, false
}

// baseFor returns the swing target ratio locked in at entry.
func (s *TrendSwingT) baseFor(symbol string) float64 {
	if v, ok := s.baseTgt[symbol]; ok {
		return v
	}
	return s.baseRatio
}

// reset clears all per-symbol state after a full exit.
func (s *TrendSwingT) reset(symbol string) {
	delete(s.entry, symbol)
	delete(s.trailHigh, symbol)
	delete(s.tp1Done, symbol)
	delete(s.tLastDate, symbol)
	delete(s.tCount, symbol)
	delete(s.baseTgt, symbol)
}
