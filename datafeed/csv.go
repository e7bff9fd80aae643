package datafeed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/mhlam/tradeflow/market"
)

// CSVFeed reads candles from <dir>/<symbol>_<period>.csv, falling back to a
// .csv.xz archive under the same name. Expected columns:
//
//	time,open,high,low,close,volume
//
// A header row is allowed, the volume column is optional, and times parse as
// RFC3339, "2006-01-02 15:04:05", or a bare date, all UTC.
type CSVFeed struct {
	dir string
}

// NewCSVFeed reads candle files from dir.
func NewCSVFeed(dir string) *CSVFeed { return &CSVFeed{dir: dir} }

// History returns the bars in [start, end). A zero start or end leaves that
// side unbounded; warmupDays move the effective start back.
func (f *CSVFeed) History(ctx context.Context, symbol string, period market.Period, start, end time.Time, warmupDays int) (*market.Series, error) {
	series, err := f.load(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if !start.IsZero() && warmupDays > 0 {
		start = start.AddDate(0, 0, -warmupDays)
	}
	if end.IsZero() {
		end = series.Last().Time.Add(time.Nanosecond)
	}
	out := series.Between(start, end)
	if out.Empty() {
		return nil, fmt.Errorf("%w: %s %s has no bars in window", ErrNoData, symbol, period)
	}
	return out, nil
}

// Latest returns the most recent count bars, or everything when count is
// not positive.
func (f *CSVFeed) Latest(ctx context.Context, symbol string, period market.Period, count int) (*market.Series, error) {
	series, err := f.load(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if count > 0 && series.Len() > count {
		series = &market.Series{
			Symbol:  series.Symbol,
			Period:  series.Period,
			Candles: series.Candles[series.Len()-count:],
		}
	}
	return series, nil
}

func (f *CSVFeed) load(ctx context.Context, symbol string, period market.Period) (*market.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, path, err := f.open(symbol, period)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	candles, err := readCandles(rc)
	if err != nil {
		return nil, fmt.Errorf("datafeed: %s: %w", path, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoData, path)
	}
	return market.NewSeries(symbol, period, candles), nil
}

// open tries the plain file first, then the xz archive.
func (f *CSVFeed) open(symbol string, period market.Period) (io.ReadCloser, string, error) {
	plain := filepath.Join(f.dir, fmt.Sprintf("%s_%s.csv", symbol, period))
	if file, err := os.Open(plain); err == nil {
		return file, plain, nil
	} else if !os.IsNotExist(err) {
		return nil, "", err
	}

	packed := plain + ".xz"
	file, err := os.Open(packed)
	if os.IsNotExist(err) {
		return nil, "", fmt.Errorf("%w: neither %s nor %s exists", ErrNoData, plain, packed)
	}
	if err != nil {
		return nil, "", err
	}
	r, err := xz.NewReader(file)
	if err != nil {
		file.Close()
		return nil, "", fmt.Errorf("datafeed: %s: %w", packed, err)
	}
	return xzReadCloser{Reader: r, file: file}, packed, nil
}

// xzReadCloser closes the underlying file, not the decompressor.
type xzReadCloser struct {
	io.Reader
	file *os.File
}

func (x xzReadCloser) Close() error { return x.file.Close() }

func readCandles(r io.Reader) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var candles []market.Candle
	sawFirst := false
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return candles, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("row has %d columns, want at least 5", len(row))
		}

		c, err := parseCandle(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
}

func parseCandle(row []string) (market.Candle, error) {
	ts, err := parseTime(row[0])
	if err != nil {
		return market.Candle{}, err
	}

	vals := make([]float64, 0, 5)
	for _, cell := range row[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("bad number %q at %s", cell, row[0])
		}
		vals = append(vals, v)
		if len(vals) == 5 {
			break
		}
	}

	c := market.Candle{Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}
	if len(vals) > 4 {
		c.Volume = vals[4]
	}
	return c, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
