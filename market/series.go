package market

import (
	"fmt"
	"sort"
	"time"
)

// Series is a time-ordered run of candles for one symbol. Slicing helpers
// return views over the same backing array, so a backtest can hand strategies
// a growing history window without copying.
type Series struct {
	Symbol  string
	Period  Period
	Candles []Candle
}

// NewSeries builds a sorted series from candles in any order.
func NewSeries(symbol string, period Period, candles []Candle) *Series {
	s := &Series{Symbol: symbol, Period: period, Candles: candles}
	s.sortByTime()
	return s
}

func (s *Series) sortByTime() {
	sort.SliceStable(s.Candles, func(i, j int) bool {
		return s.Candles[i].Time.Before(s.Candles[j].Time)
	})
}

func (s *Series) Len() int    { return len(s.Candles) }
func (s *Series) Empty() bool { return s == nil || len(s.Candles) == 0 }

// Last returns the most recent candle. Callers must check Empty first.
func (s *Series) Last() Candle { return s.Candles[len(s.Candles)-1] }

// IndexOf returns the position of the candle opening exactly at t, or -1.
func (s *Series) IndexOf(t time.Time) int {
	n := len(s.Candles)
	i := sort.Search(n, func(i int) bool { return !s.Candles[i].Time.Before(t) })
	if i < n && s.Candles[i].Time.Equal(t) {
		return i
	}
	return -1
}

// UpTo returns the prefix of the series with times <= t as a view.
func (s *Series) UpTo(t time.Time) *Series {
	n := len(s.Candles)
	i := sort.Search(n, func(i int) bool { return s.Candles[i].Time.After(t) })
	return &Series{Symbol: s.Symbol, Period: s.Period, Candles: s.Candles[:i]}
}

// Between returns the candles with start <= time < end as a view.
func (s *Series) Between(start, end time.Time) *Series {
	n := len(s.Candles)
	lo := sort.Search(n, func(i int) bool { return !s.Candles[i].Time.Before(start) })
	hi := sort.Search(n, func(i int) bool { return !s.Candles[i].Time.Before(end) })
	return &Series{Symbol: s.Symbol, Period: s.Period, Candles: s.Candles[lo:hi]}
}

// NormalizeDaily truncates every bar time to midnight UTC. Daily feeds often
// stamp bars with session open or close times; aligning them to the calendar
// date keeps day windows unambiguous when mixed with intraday series.
func (s *Series) NormalizeDaily() *Series {
	out := &Series{Symbol: s.Symbol, Period: s.Period, Candles: make([]Candle, len(s.Candles))}
	copy(out.Candles, s.Candles)
	for i := range out.Candles {
		t := out.Candles[i].Time.UTC()
		out.Candles[i].Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	out.sortByTime()
	return out
}

// Timestamps returns the bar open times in order.
func (s *Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Time
	}
	return out
}

func (s *Series) Opens() []float64   { return s.column(func(c Candle) float64 { return c.Open }) }
func (s *Series) Highs() []float64   { return s.column(func(c Candle) float64 { return c.High }) }
func (s *Series) Lows() []float64    { return s.column(func(c Candle) float64 { return c.Low }) }
func (s *Series) Closes() []float64  { return s.column(func(c Candle) float64 { return c.Close }) }
func (s *Series) Volumes() []float64 { return s.column(func(c Candle) float64 { return c.Volume }) }

func (s *Series) column(f func(Candle) float64) []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = f(c)
	}
	return out
}

// Validate reports whether the series is usable for simulation: non-empty,
// chronological, and with positive closes.
func (s *Series) Validate() error {
	if s.Empty() {
		return fmt.Errorf("series %s: no candles", s.symbolOrUnknown())
	}
	prev := s.Candles[0].Time
	for i, c := range s.Candles {
		if c.Close <= 0 {
			return fmt.Errorf("series %s: non-positive close at %s", s.Symbol, c.Time.Format(time.RFC3339))
		}
		if i > 0 && c.Time.Before(prev) {
			return fmt.Errorf("series %s: out of order at index %d", s.Symbol, i)
		}
		prev = c.Time
	}
	return nil
}

func (s *Series) symbolOrUnknown() string {
	if s == nil || s.Symbol == "" {
		return "?"
	}
	return s.Symbol
}
