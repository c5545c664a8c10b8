package signal

import (
	talib "github.com/markcheno/go-talib"

	"github.com/quantkr/backtester/internal/domain"
)

// momentumSignal votes on trend-confirmed momentum: five buy conditions
// (price above MA, RSI not overbought, MACD histogram positive, ADX strong,
// MFI inflow) of which three must hold, and three sell conditions (price
// well below MA, RSI overbought, MACD histogram negative) of which two must
// hold. The score is the fraction of conditions met.
type momentumSignal struct {
	maPeriod      int
	rsiPeriod     int
	rsiOverbought float64
	adxThreshold  float64
	mfiThreshold  float64
}

func newMomentumSignal() *momentumSignal {
	return &momentumSignal{
		maPeriod:      60,
		rsiPeriod:     14,
		rsiOverbought: 70,
		adxThreshold:  25,
		mfiThreshold:  40,
	}
}

func (s *momentumSignal) Name() string { return "momentum" }

func (s *momentumSignal) MinBars() int { return s.maPeriod }

func (s *momentumSignal) Generate(w Window) Vote {
	if w.Len() < s.MinBars() {
		return hold()
	}

	last := w.Len() - 1

	ma := talib.Sma(w.Close, s.maPeriod)
	priceVsMA := 0.0
	if ma[last] > 0 {
		priceVsMA = (w.Close[last]/ma[last] - 1) * 100
	}

	rsi := talib.Rsi(w.Close, s.rsiPeriod)[last]

	_, _, histogram := talib.Macd(w.Close, 12, 26, 9)
	macdHist := histogram[last]

	adx := talib.Adx(w.High, w.Low, w.Close, 14)[last]
	mfi := talib.Mfi(w.High, w.Low, w.Close, w.Volume, 14)[last]

	buyConditions := 0
	for _, ok := range []bool{
		priceVsMA > 0,
		rsi < s.rsiOverbought,
		macdHist > 0,
		adx > s.adxThreshold,
		mfi > s.mfiThreshold,
	} {
		if ok {
			buyConditions++
		}
	}

	sellConditions := 0
	for _, ok := range []bool{
		priceVsMA < -5,
		rsi > s.rsiOverbought,
		macdHist < 0,
	} {
		if ok {
			sellConditions++
		}
	}

	indicators := map[string]float64{
		"price_vs_ma":    priceVsMA,
		"rsi":            rsi,
		"macd_histogram": macdHist,
		"adx":            adx,
		"mfi":            mfi,
	}

	switch {
	case buyConditions >= 3:
		return Vote{Action: domain.ActionBuy, Score: float64(buyConditions) / 5, Indicators: indicators}
	case sellConditions >= 2:
		return Vote{Action: domain.ActionSell, Score: float64(sellConditions) / 3, Indicators: indicators}
	default:
		return Vote{Action: domain.ActionHold, Indicators: indicators}
	}
}
