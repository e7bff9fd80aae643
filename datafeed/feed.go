// Package datafeed supplies candle history: CSV files (optionally
// xz-compressed) for backtests, and a seeded random walk for demos.
package datafeed

import (
	"context"
	"errors"
	"time"

	"github.com/mhlam/tradeflow/market"
)

// ErrNoData reports that a feed holds no candles for a symbol and period.
// Callers usually skip the symbol with a warning rather than abort.
var ErrNoData = errors.New("datafeed: no data")

// Feed is a candle source. History serves backtests: bars in [start, end),
// widened backward by warmupDays so indicators can spin up before the first
// tradable bar. Latest serves polling: the most recent count bars.
type Feed interface {
	History(ctx context.Context, symbol string, period market.Period, start, end time.Time, warmupDays int) (*market.Series, error)
	Latest(ctx context.Context, symbol string, period market.Period, count int) (*market.Series, error)
}
