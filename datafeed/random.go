package datafeed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/mhlam/tradeflow/market"
)

// walkEpoch anchors every random walk. Bars are deterministic functions of
// (seed, symbol, period, bar time), so History and Latest agree on
// overlapping windows and repeated calls replay identical prices.
var walkEpoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

// RandomFeed synthesizes random-walk candles for demos and smoke runs. The
// same seed always produces the same market; no data files are required.
type RandomFeed struct {
	seed int64
}

// NewRandomFeed builds a reproducible synthetic feed.
func NewRandomFeed(seed int64) *RandomFeed { return &RandomFeed{seed: seed} }

// History generates bars in [start, end), widened backward by warmupDays.
// Bars before the 2015 epoch do not exist.
func (f *RandomFeed) History(ctx context.Context, symbol string, period market.Period, start, end time.Time, warmupDays int) (*market.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if !start.IsZero() && warmupDays > 0 {
		start = start.AddDate(0, 0, -warmupDays)
	}
	if start.Before(walkEpoch) {
		start = walkEpoch
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: %s window [%s, %s) is empty", ErrNoData, symbol,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return f.generate(symbol, period, start, end), nil
}

// Latest generates the count bars ending at the current bar boundary.
func (f *RandomFeed) Latest(ctx context.Context, symbol string, period market.Period, count int) (*market.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 1
	}
	step := period.Duration()
	end := time.Now().UTC().Truncate(step)
	start := end.Add(-time.Duration(count) * step)
	if start.Before(walkEpoch) {
		start = walkEpoch
	}
	return f.generate(symbol, period, start, end.Add(step)), nil
}

// generate replays the walk from the epoch, materializing only the bars
// inside [start, end). Every step consumes a fixed number of draws so the
// stream stays aligned no matter which window is requested.
func (f *RandomFeed) generate(symbol string, period market.Period, start, end time.Time) *market.Series {
	r := rand.New(rand.NewSource(f.symbolSeed(symbol)))
	price := 20 + r.Float64()*180
	step := period.Duration()

	var candles []market.Candle
	for t := walkEpoch; t.Before(end); t = t.Add(step) {
		open := price
		change := price * (0.0002 + 0.02*(r.Float64()*2-1))
		close := open + change
		if close < 1 {
			close = 1
		}
		high := max(open, close) * (1 + r.Float64()*0.004)
		low := min(open, close) * (1 - r.Float64()*0.004)
		volume := 1_000 + r.Float64()*9_000
		price = close

		if t.Before(start) {
			continue
		}
		candles = append(candles, market.Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}
	return market.NewSeries(symbol, period, candles)
}

func (f *RandomFeed) symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return f.seed ^ int64(h.Sum64())
}
