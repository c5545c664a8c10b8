package ledger

// CostModel prices executions and fees for trade intents. The engine keeps
// two books with different cost models fed from the same intents, so cost
// drag can be measured without duplicating mutation logic.
type CostModel interface {
	// BuyPrice returns the execution price for a buy at the quoted price
	BuyPrice(price float64) float64
	// SellPrice returns the execution price for a sell at the quoted price
	SellPrice(price float64) float64
	// Commission returns the commission charged on a notional amount
	Commission(notional float64) float64
	// Tax returns the sell-side transaction tax on a notional amount
	Tax(notional float64) float64
}

// MarketCosts applies slippage, commission and the instrument's sell-side
// transaction tax
type MarketCosts struct {
	CommissionRate float64
	SlippageRate   float64
	TaxRate        float64
}

// BuyPrice adds slippage: price × (1 + slippage rate)
func (m MarketCosts) BuyPrice(price float64) float64 {
	return price * (1 + m.SlippageRate)
}

// SellPrice subtracts slippage: price × (1 - slippage rate)
func (m MarketCosts) SellPrice(price float64) float64 {
	return price * (1 - m.SlippageRate)
}

// Commission returns notional × commission rate
func (m MarketCosts) Commission(notional float64) float64 {
	return notional * m.CommissionRate
}

// Tax returns notional × tax rate (sells only; the book never calls it on buys)
func (m MarketCosts) Tax(notional float64) float64 {
	return notional * m.TaxRate
}

// ZeroCosts executes at the quoted price with no fees. The gross book uses
// it to measure what the strategy would have earned without cost drag.
type ZeroCosts struct{}

func (ZeroCosts) BuyPrice(price float64) float64  { return price }
func (ZeroCosts) SellPrice(price float64) float64 { return price }
func (ZeroCosts) Commission(float64) float64      { return 0 }
func (ZeroCosts) Tax(float64) float64             { return 0 }
