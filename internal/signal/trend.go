package signal

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/quantkr/backtester/internal/domain"
)

// trendSignal votes on a 20/60 moving-average cross confirmed by ADX and
// raw price momentum. Strength is normalized to [0, 1]: ADX/50 on the way
// up, |cross|/10 on the way down.
type trendSignal struct{}

func newTrendSignal() *trendSignal { return &trendSignal{} }

func (s *trendSignal) Name() string { return "trend" }

func (s *trendSignal) MinBars() int { return 60 }

func (s *trendSignal) Generate(w Window) Vote {
	if w.Len() < s.MinBars() {
		return hold()
	}

	last := w.Len() - 1

	maShort := talib.Sma(w.Close, 20)[last]
	maLong := talib.Sma(w.Close, 60)[last]
	maCross := 0.0
	if maLong > 0 {
		maCross = (maShort/maLong - 1) * 100
	}

	adx := talib.Adx(w.High, w.Low, w.Close, 14)[last]

	momentum20 := (w.Close[last]/w.Close[last-19] - 1) * 100
	momentum60 := (w.Close[last]/w.Close[last-59] - 1) * 100

	indicators := map[string]float64{
		"ma_cross":    maCross,
		"adx":         adx,
		"momentum_20": momentum20,
		"momentum_60": momentum60,
	}

	switch {
	case maCross > 0 && adx > 25 && momentum20 > 0:
		return Vote{Action: domain.ActionBuy, Score: math.Min(adx/50, 1), Indicators: indicators}
	case maCross < -5 || momentum20 < -10:
		return Vote{Action: domain.ActionSell, Score: math.Min(math.Abs(maCross)/10, 1), Indicators: indicators}
	default:
		return Vote{Action: domain.ActionHold, Indicators: indicators}
	}
}
