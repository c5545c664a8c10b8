package domain

import (
	"sort"
	"time"
)

// Bar is one daily OHLCV observation
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Value  float64   `json:"value"` // traded value; Close×Volume when the source has no column
}

// Day normalizes a timestamp to a UTC calendar date, the canonical form for
// all trading-date keys in the simulation.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PriceTable holds date-sorted daily bars per symbol. It is built once by a
// marketdata source and read-only during the simulation.
type PriceTable struct {
	bars map[string][]Bar
}

// NewPriceTable creates an empty price table
func NewPriceTable() *PriceTable {
	return &PriceTable{bars: make(map[string][]Bar)}
}

// Add appends a bar to a symbol's series. Call Sort once loading completes.
func (t *PriceTable) Add(symbol string, bar Bar) {
	bar.Date = Day(bar.Date)
	if bar.Value == 0 {
		bar.Value = bar.Close * bar.Volume
	}
	t.bars[symbol] = append(t.bars[symbol], bar)
}

// Sort orders every symbol's series by date. Must be called after loading
// and before any lookup.
func (t *PriceTable) Sort() {
	for _, series := range t.bars {
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
	}
}

// Symbols returns all symbols in the table, sorted
func (t *PriceTable) Symbols() []string {
	symbols := make([]string, 0, len(t.bars))
	for symbol := range t.bars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// TradingDates returns the sorted union of all observed dates within
// [start, end] inclusive
func (t *PriceTable) TradingDates(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	seen := make(map[time.Time]struct{})
	for _, series := range t.bars {
		for _, bar := range series {
			if bar.Date.Before(start) || bar.Date.After(end) {
				continue
			}
			seen[bar.Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Bar returns the bar for a symbol on an exact date
func (t *PriceTable) Bar(symbol string, date time.Time) (Bar, bool) {
	series := t.bars[symbol]
	date = Day(date)
	idx := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(date)
	})
	if idx < len(series) && series[idx].Date.Equal(date) {
		return series[idx], true
	}
	return Bar{}, false
}

// Close returns the closing price for a symbol on an exact date
func (t *PriceTable) Close(symbol string, date time.Time) (float64, bool) {
	bar, ok := t.Bar(symbol, date)
	if !ok {
		return 0, false
	}
	return bar.Close, true
}

// ClosesAt returns the closing prices of every symbol with a bar on the
// given date. Symbols without data that day are simply absent.
func (t *PriceTable) ClosesAt(date time.Time) map[string]float64 {
	prices := make(map[string]float64)
	for symbol := range t.bars {
		if close, ok := t.Close(symbol, date); ok {
			prices[symbol] = close
		}
	}
	return prices
}

// Window returns up to n trailing bars for a symbol ending at the given
// date (inclusive). Fewer bars are returned when the history is short;
// callers treat that as a data-insufficiency skip.
func (t *PriceTable) Window(symbol string, end time.Time, n int) []Bar {
	series := t.bars[symbol]
	end = Day(end)
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Date.After(end)
	})

	start := idx - n
	if start < 0 {
		start = 0
	}
	return series[start:idx]
}

// History returns all bars for a symbol up to and including the given date
func (t *PriceTable) History(symbol string, end time.Time) []Bar {
	return t.Window(symbol, end, len(t.bars[symbol]))
}

// AvgTradedValue returns the mean daily traded value over the trailing n
// bars ending at the given date, or 0 when no data exists.
func (t *PriceTable) AvgTradedValue(symbol string, end time.Time, n int) float64 {
	window := t.Window(symbol, end, n)
	if len(window) == 0 {
		return 0
	}

	var total float64
	for _, bar := range window {
		total += bar.Value
	}
	return total / float64(len(window))
}

// Closes extracts the closing prices from a bar slice
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}
