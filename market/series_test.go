package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func candleAt(t time.Time, close float64) Candle {
	return Candle{Time: t, Open: close, High: close, Low: close, Close: close, Volume: 1000}
}

func TestNewSeriesSortsCandles(t *testing.T) {
	t.Parallel()

	s := NewSeries("AAPL.US", PeriodDay, []Candle{
		candleAt(day(2024, 1, 3), 103),
		candleAt(day(2024, 1, 1), 101),
		candleAt(day(2024, 1, 2), 102),
	})

	require.Equal(t, 3, s.Len())
	assert.Equal(t, day(2024, 1, 1), s.Candles[0].Time)
	assert.Equal(t, day(2024, 1, 3), s.Last().Time)
	assert.NoError(t, s.Validate())
}

func TestSeriesSlicing(t *testing.T) {
	t.Parallel()

	s := NewSeries("AAPL.US", PeriodDay, []Candle{
		candleAt(day(2024, 1, 1), 101),
		candleAt(day(2024, 1, 2), 102),
		candleAt(day(2024, 1, 3), 103),
		candleAt(day(2024, 1, 4), 104),
	})

	upTo := s.UpTo(day(2024, 1, 2))
	assert.Equal(t, 2, upTo.Len())
	assert.Equal(t, 102.0, upTo.Last().Close)

	// UpTo with a time between bars includes everything before it.
	upTo = s.UpTo(day(2024, 1, 2).Add(5 * time.Hour))
	assert.Equal(t, 2, upTo.Len())

	between := s.Between(day(2024, 1, 2), day(2024, 1, 4))
	assert.Equal(t, 2, between.Len())
	assert.Equal(t, day(2024, 1, 2), between.Candles[0].Time)
	assert.Equal(t, day(2024, 1, 3), between.Candles[1].Time)

	assert.Equal(t, 1, s.IndexOf(day(2024, 1, 2)))
	assert.Equal(t, -1, s.IndexOf(day(2024, 1, 5)))
}

func TestSeriesNormalizeDaily(t *testing.T) {
	t.Parallel()

	s := NewSeries("0700.HK", PeriodDay, []Candle{
		candleAt(time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC), 300),
		candleAt(time.Date(2024, 1, 3, 16, 0, 0, 0, time.UTC), 305),
	})

	norm := s.NormalizeDaily()
	assert.Equal(t, day(2024, 1, 2), norm.Candles[0].Time)
	assert.Equal(t, day(2024, 1, 3), norm.Candles[1].Time)
	// The source series is untouched.
	assert.Equal(t, 16, s.Candles[0].Time.Hour())
}

func TestSeriesValidate(t *testing.T) {
	t.Parallel()

	empty := &Series{Symbol: "X"}
	assert.Error(t, empty.Validate())

	bad := NewSeries("X", PeriodDay, []Candle{candleAt(day(2024, 1, 1), 0)})
	assert.Error(t, bad.Validate())
}

func TestLotSizesGet(t *testing.T) {
	t.Parallel()

	lots := LotSizes{"0700.HK": 100, "BAD": 0}
	assert.Equal(t, 100, lots.Get("0700.HK"))
	assert.Equal(t, 1, lots.Get("AAPL.US"))
	assert.Equal(t, 1, lots.Get("BAD"))

	var nilLots LotSizes
	assert.Equal(t, 1, nilLots.Get("ANY"))
}

func TestPeriodDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 15*time.Minute, Period15m.Duration())
	assert.Equal(t, 24*time.Hour, PeriodDay.Duration())
	assert.Equal(t, time.Minute, Period("weird").Duration())
	assert.True(t, PeriodDay.Valid())
	assert.False(t, Period("weird").Valid())
}
