package market

import "time"

// Candle represents one OHLCV bar. Time is the bar open in UTC.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Period identifies a bar interval, e.g. "1d" or "15m".
type Period string

const (
	Period1m  Period = "1m"
	Period5m  Period = "5m"
	Period15m Period = "15m"
	Period30m Period = "30m"
	Period60m Period = "60m"
	PeriodDay Period = "1d"
	PeriodWk  Period = "1w"
)

// Duration returns the nominal bar length. Unknown periods fall back to one
// minute, which keeps staleness checks conservative.
func (p Period) Duration() time.Duration {
	switch p {
	case Period5m:
		return 5 * time.Minute
	case Period15m:
		return 15 * time.Minute
	case Period30m:
		return 30 * time.Minute
	case Period60m:
		return time.Hour
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWk:
		return 7 * 24 * time.Hour
	default:
		return time.Minute
	}
}

func (p Period) Valid() bool {
	switch p {
	case Period1m, Period5m, Period15m, Period30m, Period60m, PeriodDay, PeriodWk:
		return true
	}
	return false
}
