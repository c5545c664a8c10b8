package signal

import (
	"github.com/quantkr/backtester/internal/domain"
)

// Window is the trailing price history a sub-signal evaluates, oldest bar
// first. All slices have equal length.
type Window struct {
	Close  []float64
	High   []float64
	Low    []float64
	Volume []float64
}

// NewWindow builds a signal window from a bar slice
func NewWindow(bars []domain.Bar) Window {
	w := Window{
		Close:  make([]float64, len(bars)),
		High:   make([]float64, len(bars)),
		Low:    make([]float64, len(bars)),
		Volume: make([]float64, len(bars)),
	}
	for i, bar := range bars {
		w.Close[i] = bar.Close
		w.High[i] = bar.High
		w.Low[i] = bar.Low
		w.Volume[i] = bar.Volume
	}
	return w
}

// Len returns the number of bars in the window
func (w Window) Len() int {
	return len(w.Close)
}

// Vote is one sub-signal's opinion on a symbol. Score is always in [0, 1]
// regardless of direction; Action carries the direction.
type Vote struct {
	Action     domain.Action
	Score      float64
	Indicators map[string]float64
}

// hold is the abstain vote
func hold() Vote {
	return Vote{Action: domain.ActionHold, Indicators: map[string]float64{}}
}

// SubSignal evaluates one trailing window into a directional vote
type SubSignal interface {
	// Name identifies the sub-signal in logs and indicator maps
	Name() string
	// MinBars is the shortest window the signal can evaluate
	MinBars() int
	// Generate votes on the window; returns a HOLD vote when the window is
	// too short or conditions are mixed
	Generate(w Window) Vote
}
