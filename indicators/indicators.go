// Package indicators wraps the go-talib primitives the strategies consume.
// Every function is length-guarded: input shorter than the indicator's
// warmup returns nil instead of panicking inside the library, so strategies
// can treat nil as "not enough history". Results are full-length slices
// aligned with the input; positions inside the warmup hold talib's zero
// values and must not be read.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// EMA is the exponential moving average. Values before index period-1 are
// warmup.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return talib.Ema(values, period)
}

// SMA is the simple moving average over period.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return talib.Sma(values, period)
}

// ATR is Wilder's average true range. The first defined value sits at index
// period, seeded from the mean of the first period true ranges.
func ATR(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 || !sameLen(highs, lows, closes) || len(closes) < period+1 {
		return nil
	}
	return talib.Atr(highs, lows, closes, period)
}

// ADX is the average directional index, Wilder-smoothed. The first defined
// value sits at index 2*period-1.
func ADX(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 || !sameLen(highs, lows, closes) || len(closes) < 2*period {
		return nil
	}
	return talib.Adx(highs, lows, closes, period)
}

// RSI is Wilder's relative strength index. The first defined value sits at
// index period. The period must be at least 2; talib yields an all-zero
// series below that, which would read as deeply oversold.
func RSI(closes []float64, period int) []float64 {
	if period < 2 || len(closes) < period+1 {
		return nil
	}
	return talib.Rsi(closes, period)
}

// MACD returns the DIF line (fast EMA minus slow EMA), the DEA signal line,
// and the histogram DIF-DEA. The conventional bar value is twice the
// histogram; callers that want it scale themselves.
func MACD(closes []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(closes) < slow+signal {
		return nil, nil, nil
	}
	return talib.Macd(closes, fast, slow, signal)
}

// Donchian returns the rolling highest high, lowest low, and channel middle
// over period. Each value covers the window ending at its own index, so a
// breakout test against the previous bar's band reads index i-1. The period
// must be at least 2, as with RSI.
func Donchian(highs, lows []float64, period int) (upper, lower, mid []float64) {
	if period < 2 || len(highs) != len(lows) || len(highs) < period {
		return nil, nil, nil
	}
	upper = talib.Max(highs, period)
	lower = talib.Min(lows, period)
	mid = make([]float64, len(upper))
	for i := range mid {
		mid[i] = (upper[i] + lower[i]) / 2
	}
	return upper, lower, mid
}

// RollingRSI is the simple-mean RSI variant: average gain and loss are plain
// rolling means over the last period price changes, not Wilder-smoothed.
// It reacts faster than RSI for the same period, which is what the intraday
// rebalance wants. Warmup positions (index < period) and flat windows are
// NaN; NaN fails every threshold comparison, so callers need no extra guard.
func RollingRSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - closes[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		switch {
		case loss > 0:
			rs := gain / loss
			out[i] = 100 - 100/(1+rs)
		case gain > 0:
			out[i] = 100
		}
	}
	return out
}

func sameLen(highs, lows, closes []float64) bool {
	return len(highs) == len(lows) && len(lows) == len(closes)
}
