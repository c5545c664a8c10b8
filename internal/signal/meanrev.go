package signal

import (
	talib "github.com/markcheno/go-talib"

	"github.com/quantkr/backtester/internal/domain"
)

// meanReversionSignal votes only at extremes: all of Bollinger position,
// RSI and Williams %R must agree on deeply oversold (BUY) or deeply
// overbought (SELL). Votes carry full score since the conditions are
// all-or-nothing.
type meanReversionSignal struct{}

func newMeanReversionSignal() *meanReversionSignal { return &meanReversionSignal{} }

func (s *meanReversionSignal) Name() string { return "mean_reversion" }

func (s *meanReversionSignal) MinBars() int { return 20 }

func (s *meanReversionSignal) Generate(w Window) Vote {
	if w.Len() < s.MinBars() {
		return hold()
	}

	last := w.Len() - 1

	upper, _, lower := talib.BBands(w.Close, 20, 2, 2, 0)
	bbPosition := 0.5
	if width := upper[last] - lower[last]; width > 0 {
		bbPosition = (w.Close[last] - lower[last]) / width
	}

	rsi := talib.Rsi(w.Close, 14)[last]
	williamsR := talib.WillR(w.High, w.Low, w.Close, 14)[last]

	indicators := map[string]float64{
		"bb_position": bbPosition,
		"rsi":         rsi,
		"williams_r":  williamsR,
	}

	switch {
	case bbPosition < 0.2 && rsi < 30 && williamsR < -80:
		return Vote{Action: domain.ActionBuy, Score: 1, Indicators: indicators}
	case bbPosition > 0.8 && rsi > 70 && williamsR > -20:
		return Vote{Action: domain.ActionSell, Score: 1, Indicators: indicators}
	default:
		return Vote{Action: domain.ActionHold, Indicators: indicators}
	}
}
