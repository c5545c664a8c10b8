package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantkr/backtester/internal/domain"
	"github.com/quantkr/backtester/pkg/logger"
)

func newTestGenerator() *Generator {
	return NewGenerator(logger.New(logger.Config{Level: "error"}))
}

// syntheticWindow builds n bars compounding at dailyGrowth per bar, with
// highs/lows bracketing the close and constant volume
func syntheticWindow(n int, start, dailyGrowth float64) Window {
	w := Window{
		Close:  make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Volume: make([]float64, n),
	}

	price := start
	for i := 0; i < n; i++ {
		w.Close[i] = price
		w.High[i] = price * 1.01
		w.Low[i] = price * 0.99
		w.Volume[i] = 100_000
		price *= 1 + dailyGrowth
	}
	return w
}

func TestCombined_UptrendVotesBuy(t *testing.T) {
	g := newTestGenerator()

	sig := g.Combined(syntheticWindow(150, 10_000, 0.01))
	assert.Equal(t, domain.ActionBuy, sig.Action)
	assert.Greater(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)

	assert.Equal(t, domain.ActionBuy, sig.Components["momentum"].Action)
	assert.Equal(t, domain.ActionBuy, sig.Components["trend"].Action)
}

func TestCombined_DowntrendVotesSell(t *testing.T) {
	g := newTestGenerator()

	sig := g.Combined(syntheticWindow(150, 10_000, -0.01))
	assert.Equal(t, domain.ActionSell, sig.Action)
	assert.Equal(t, domain.ActionSell, sig.Components["momentum"].Action)
	assert.Equal(t, domain.ActionSell, sig.Components["trend"].Action)
}

func TestCombined_ShortWindowHolds(t *testing.T) {
	g := newTestGenerator()

	sig := g.Combined(syntheticWindow(10, 10_000, 0.01))
	assert.Equal(t, domain.ActionHold, sig.Action)
	// Every sub-signal abstained, so HOLD collects the full weight.
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
}

func TestCombined_ScoresSumToAtMostOne(t *testing.T) {
	g := newTestGenerator()

	for _, growth := range []float64{0.01, -0.01, 0.0001} {
		sig := g.Combined(syntheticWindow(150, 10_000, growth))

		var total float64
		for _, score := range sig.Scores {
			assert.GreaterOrEqual(t, score, 0.0)
			total += score
		}
		assert.LessOrEqual(t, total, 1.0+1e-9)
	}
}

func TestGeneratorMinBars(t *testing.T) {
	g := newTestGenerator()
	// The momentum and trend windows are the longest at 60 bars.
	assert.Equal(t, 60, g.MinBars())
}

func TestMomentumSignal_ConditionCounts(t *testing.T) {
	s := newMomentumSignal()

	vote := s.Generate(syntheticWindow(150, 10_000, 0.01))
	require.Equal(t, domain.ActionBuy, vote.Action)
	// Steady gains leave RSI overbought, so exactly 4 of the 5 buy
	// conditions hold.
	assert.InDelta(t, 0.8, vote.Score, 1e-9)
	assert.Greater(t, vote.Indicators["price_vs_ma"], 0.0)
	assert.Greater(t, vote.Indicators["rsi"], 70.0)

	vote = s.Generate(syntheticWindow(150, 10_000, -0.01))
	require.Equal(t, domain.ActionSell, vote.Action)
	assert.InDelta(t, 2.0/3.0, vote.Score, 1e-9)
}

func TestTrendSignal_StrengthBounded(t *testing.T) {
	s := newTrendSignal()

	for _, growth := range []float64{0.02, -0.02} {
		vote := s.Generate(syntheticWindow(150, 10_000, growth))
		assert.NotEqual(t, domain.ActionHold, vote.Action)
		assert.GreaterOrEqual(t, vote.Score, 0.0)
		assert.LessOrEqual(t, vote.Score, 1.0)
	}
}

func TestMeanReversionSignal_FlatMarketHolds(t *testing.T) {
	s := newMeanReversionSignal()

	// Mild oscillation around a level: no extreme on all three indicators.
	w := syntheticWindow(60, 10_000, 0)
	for i := range w.Close {
		w.Close[i] *= 1 + 0.002*math.Sin(float64(i))
		w.High[i] = w.Close[i] * 1.01
		w.Low[i] = w.Close[i] * 0.99
	}

	vote := s.Generate(w)
	assert.Equal(t, domain.ActionHold, vote.Action)
}

func TestSubSignalsAbstainBelowMinBars(t *testing.T) {
	subs := []SubSignal{newMomentumSignal(), newTrendSignal(), newMeanReversionSignal()}
	for _, s := range subs {
		vote := s.Generate(syntheticWindow(s.MinBars()-1, 10_000, 0.01))
		assert.Equal(t, domain.ActionHold, vote.Action, s.Name())
		assert.Zero(t, vote.Score, s.Name())
	}
}
