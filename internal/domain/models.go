package domain

import "time"

// Action represents a trade or signal direction
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// InstrumentType determines the sell-side transaction tax applied by the
// cost model (Korean market rates).
type InstrumentType string

const (
	InstrumentETF          InstrumentType = "etf"
	InstrumentStock        InstrumentType = "stock"
	InstrumentLeveragedETF InstrumentType = "leveraged_etf"
	InstrumentREIT         InstrumentType = "reit"
	InstrumentDefault      InstrumentType = "default"
)

// TaxRate returns the transaction tax rate charged on sells.
// Stocks and REITs pay 0.23%; ETFs and leveraged ETFs are exempt.
func (t InstrumentType) TaxRate() float64 {
	switch t {
	case InstrumentStock, InstrumentREIT:
		return 0.0023
	default:
		return 0
	}
}

// Valid reports whether the instrument type is one of the known categories
func (t InstrumentType) Valid() bool {
	switch t {
	case InstrumentETF, InstrumentStock, InstrumentLeveragedETF, InstrumentREIT, InstrumentDefault:
		return true
	}
	return false
}

// RebalanceFrequency controls which trading dates trigger a rebalance
type RebalanceFrequency string

const (
	RebalanceDaily   RebalanceFrequency = "daily"
	RebalanceWeekly  RebalanceFrequency = "weekly"
	RebalanceMonthly RebalanceFrequency = "monthly"
)

// Valid reports whether the frequency is one of the known schedules
func (f RebalanceFrequency) Valid() bool {
	switch f {
	case RebalanceDaily, RebalanceWeekly, RebalanceMonthly:
		return true
	}
	return false
}

// Position is a single holding within a portfolio.
// Quantity never goes negative; the owning portfolio removes the entry once
// it reaches zero.
type Position struct {
	Symbol       string    `json:"symbol"`
	Quantity     int64     `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"` // quantity-weighted average cost
	EntryDate    time.Time `json:"entry_date"`
	CurrentPrice float64   `json:"current_price"`
}

// MarketValue returns quantity × current mark
func (p Position) MarketValue() float64 {
	return float64(p.Quantity) * p.CurrentPrice
}

// PnL returns the unrealized profit relative to average cost
func (p Position) PnL() float64 {
	return (p.CurrentPrice - p.EntryPrice) * float64(p.Quantity)
}

// PnLPct returns the unrealized profit as a percentage of average cost
func (p Position) PnLPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice/p.EntryPrice - 1) * 100
}

// Trade is an immutable execution record, appended at execution time and
// never mutated. EntryPrice and RealizedPnL are populated on sells only.
type Trade struct {
	Date        time.Time `json:"date"`
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"` // execution price, after slippage
	Commission  float64   `json:"commission"`
	Tax         float64   `json:"tax"`
	Slippage    float64   `json:"slippage"`
	EntryPrice  float64   `json:"entry_price,omitempty"`
	RealizedPnL float64   `json:"realized_pnl,omitempty"`
}

// Amount returns the cash moved by the trade including commission
func (t Trade) Amount() float64 {
	return float64(t.Quantity)*t.Price + t.Commission
}

// TotalCost returns commission + tax + slippage
func (t Trade) TotalCost() float64 {
	return t.Commission + t.Tax + t.Slippage
}

// Portfolio holds cash, open positions keyed by symbol, and the ordered
// trade log
type Portfolio struct {
	Cash      float64              `json:"cash"`
	Positions map[string]*Position `json:"positions"`
	Trades    []Trade              `json:"trades"`
}

// NewPortfolio creates an empty portfolio with the given starting cash
func NewPortfolio(cash float64) *Portfolio {
	return &Portfolio{
		Cash:      cash,
		Positions: make(map[string]*Position),
	}
}

// MarketValue returns the summed market value of all open positions
func (p *Portfolio) MarketValue() float64 {
	var total float64
	for _, pos := range p.Positions {
		total += pos.MarketValue()
	}
	return total
}

// TotalValue returns cash plus position market value
func (p *Portfolio) TotalValue() float64 {
	return p.Cash + p.MarketValue()
}

// UpdatePrices marks open positions to the given prices. Symbols without a
// price keep their previous mark.
func (p *Portfolio) UpdatePrices(prices map[string]float64) {
	for symbol, pos := range p.Positions {
		if price, ok := prices[symbol]; ok {
			pos.CurrentPrice = price
		}
	}
}

// NAVPoint is one net-asset-value observation
type NAVPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Result is the terminal state of one backtest run
type Result struct {
	RunID          string              `json:"run_id"`
	Metrics        map[string]float64  `json:"metrics"`
	NAVHistory     []NAVPoint          `json:"nav_history"`
	Trades         []Trade             `json:"trades"`
	FinalPositions map[string]Position `json:"final_positions"`
}
