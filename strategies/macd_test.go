package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhlam/tradeflow/indicators"
)

func TestNewMACDValidation(t *testing.T) {
	t.Parallel()

	s, err := NewMACD(nil)
	require.NoError(t, err)
	assert.Equal(t, "MACD", s.Name())

	_, err = NewMACD(Params{"fast": 26, "slow": 12})
	assert.Error(t, err, "fast must stay below slow")

	_, err = NewMACD(Params{"signal": 0})
	assert.Error(t, err)
}

func TestMACDInsufficientHistory(t *testing.T) {
	t.Parallel()

	s, err := NewMACD(nil)
	require.NoError(t, err)

	sig, err := s.Analyze("TEST", dailySeries(t, rampCloses(20, 100, 1)))
	require.NoError(t, err)
	assert.Equal(t, ActionHold, sig.Action)
	assert.Equal(t, "insufficient history", sig.Reason)
}

// vShape falls for down bars, then climbs twice as fast.
func vShape(down, up int) []float64 {
	closes := rampCloses(down, 100, -1)
	for i := 0; i < up; i++ {
		closes = append(closes, closes[len(closes)-1]+2)
	}
	return closes
}

func TestMACDBullishCross(t *testing.T) {
	t.Parallel()

	closes := vShape(40, 30)
	dif, dea, _ := indicators.MACD(closes, 12, 26, 9)
	require.NotNil(t, dif)

	// Locate the bar where DIF first crosses above DEA, then confirm the
	// strategy fires exactly there.
	cross := -1
	for i := 36; i < len(closes); i++ {
		if dif[i-1] < dea[i-1] && dif[i] > dea[i] {
			cross = i
			break
		}
	}
	require.Greater(t, cross, 0, "the rally must produce a bullish cross")

	s, err := NewMACD(nil)
	require.NoError(t, err)

	sig, err := s.Analyze("TEST", dailySeries(t, closes[:cross+1]))
	require.NoError(t, err)
	assert.Equal(t, ActionBuy, sig.Action)
	assert.Contains(t, sig.Reason, "MACD bullish cross")
	assert.Equal(t, closes[cross], sig.Price)
	assert.Contains(t, sig.Factors, "dif")
	assert.Contains(t, sig.Factors, "dea")
	assert.Contains(t, sig.Factors, "macd")
}

func TestMACDBearishCross(t *testing.T) {
	t.Parallel()

	// Mirror image: climb then fall.
	closes := rampCloses(40, 100, 1)
	for i := 0; i < 30; i++ {
		closes = append(closes, closes[len(closes)-1]-2)
	}

	dif, dea, _ := indicators.MACD(closes, 12, 26, 9)
	require.NotNil(t, dif)

	cross := -1
	for i := 36; i < len(closes); i++ {
		if dif[i-1] > dea[i-1] && dif[i] < dea[i] {
			cross = i
			break
		}
	}
	require.Greater(t, cross, 0, "the slide must produce a bearish cross")

	s, err := NewMACD(nil)
	require.NoError(t, err)

	sig, err := s.Analyze("TEST", dailySeries(t, closes[:cross+1]))
	require.NoError(t, err)
	assert.Equal(t, ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "MACD bearish cross")
}

func TestMACDSteadyTrendHolds(t *testing.T) {
	t.Parallel()

	s, err := NewMACD(nil)
	require.NoError(t, err)

	// A clean linear climb keeps DIF above DEA with no fresh cross.
	sig, err := s.Analyze("TEST", dailySeries(t, rampCloses(80, 100, 0.5)))
	require.NoError(t, err)
	assert.Equal(t, ActionHold, sig.Action)
	assert.Equal(t, "no signal", sig.Reason)
}
