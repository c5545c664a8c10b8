package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestDay_NormalizesToUTCMidnight(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	stamp := time.Date(2024, 3, 4, 15, 30, 0, 0, seoul)

	normalized := Day(stamp)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), normalized)
}

func newTestTable() *PriceTable {
	table := NewPriceTable()
	// Added out of order on purpose; Sort must fix it.
	table.Add("A", Bar{Date: d(2024, 1, 3), Close: 110, Volume: 100})
	table.Add("A", Bar{Date: d(2024, 1, 2), Close: 100, Volume: 100})
	table.Add("A", Bar{Date: d(2024, 1, 4), Close: 120, Volume: 100})
	table.Add("B", Bar{Date: d(2024, 1, 3), Close: 50, Volume: 200})
	table.Sort()
	return table
}

func TestPriceTable_Lookups(t *testing.T) {
	table := newTestTable()

	close, ok := table.Close("A", d(2024, 1, 2))
	require.True(t, ok)
	assert.Equal(t, 100.0, close)

	_, ok = table.Close("A", d(2024, 1, 5))
	assert.False(t, ok)
	_, ok = table.Close("missing", d(2024, 1, 2))
	assert.False(t, ok)
}

func TestPriceTable_TradingDatesUnion(t *testing.T) {
	table := newTestTable()

	dates := table.TradingDates(d(2024, 1, 1), d(2024, 12, 31))
	require.Len(t, dates, 3)
	assert.True(t, dates[0].Before(dates[1]) && dates[1].Before(dates[2]))

	bounded := table.TradingDates(d(2024, 1, 3), d(2024, 1, 3))
	assert.Len(t, bounded, 1)
}

func TestPriceTable_ClosesAt(t *testing.T) {
	table := newTestTable()

	prices := table.ClosesAt(d(2024, 1, 3))
	assert.Equal(t, map[string]float64{"A": 110, "B": 50}, prices)

	// B has no bar on the 2nd; it is simply absent.
	prices = table.ClosesAt(d(2024, 1, 2))
	assert.Equal(t, map[string]float64{"A": 100}, prices)
}

func TestPriceTable_Window(t *testing.T) {
	table := newTestTable()

	window := table.Window("A", d(2024, 1, 3), 2)
	require.Len(t, window, 2)
	assert.Equal(t, 100.0, window[0].Close)
	assert.Equal(t, 110.0, window[1].Close)

	// Short history returns what exists.
	window = table.Window("A", d(2024, 1, 2), 10)
	assert.Len(t, window, 1)

	assert.Empty(t, table.Window("missing", d(2024, 1, 3), 5))
}

func TestPriceTable_ValueDefaultsToCloseTimesVolume(t *testing.T) {
	table := NewPriceTable()
	table.Add("A", Bar{Date: d(2024, 1, 2), Close: 100, Volume: 1_000})
	table.Add("A", Bar{Date: d(2024, 1, 3), Close: 100, Volume: 1_000, Value: 5})
	table.Sort()

	bar, _ := table.Bar("A", d(2024, 1, 2))
	assert.Equal(t, 100_000.0, bar.Value)

	// An explicit value column wins.
	bar, _ = table.Bar("A", d(2024, 1, 3))
	assert.Equal(t, 5.0, bar.Value)

	assert.Equal(t, (100_000.0+5)/2, table.AvgTradedValue("A", d(2024, 1, 3), 5))
}

func TestInstrumentTaxRates(t *testing.T) {
	assert.Equal(t, 0.0023, InstrumentStock.TaxRate())
	assert.Equal(t, 0.0023, InstrumentREIT.TaxRate())
	assert.Zero(t, InstrumentETF.TaxRate())
	assert.Zero(t, InstrumentLeveragedETF.TaxRate())
	assert.Zero(t, InstrumentDefault.TaxRate())
}

func TestPortfolio_Totals(t *testing.T) {
	p := NewPortfolio(1_000)
	p.Positions["A"] = &Position{Symbol: "A", Quantity: 10, EntryPrice: 90, CurrentPrice: 100}

	assert.Equal(t, 1_000.0, p.Cash)
	assert.Equal(t, 1_000.0, p.MarketValue())
	assert.Equal(t, 2_000.0, p.TotalValue())

	p.UpdatePrices(map[string]float64{"A": 110, "unknown": 5})
	assert.Equal(t, 110.0, p.Positions["A"].CurrentPrice)
	assert.InDelta(t, 200.0, p.Positions["A"].PnL(), 1e-9)
}
