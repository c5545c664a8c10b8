package ledger

import (
	"math"
	"time"

	"github.com/quantkr/backtester/internal/domain"
)

// book is one portfolio plus the cost model that prices its executions.
// It applies trade intents without validation; the engine performs all
// precondition checks against the net book before committing to either.
type book struct {
	costs     CostModel
	portfolio *domain.Portfolio

	navHistory   []domain.NAVPoint
	dailyReturns []float64

	totalCommission float64
	totalTax        float64
	totalSlippage   float64
}

func newBook(cash float64, costs CostModel) *book {
	return &book{
		costs:     costs,
		portfolio: domain.NewPortfolio(cash),
	}
}

// buy executes a buy intent: slippage-adjusted price, commission, cash
// debit, and a quantity-weighted average cost basis update.
func (b *book) buy(symbol string, quantity int64, price float64, date time.Time) {
	execPrice := b.costs.BuyPrice(price)
	notional := float64(quantity) * execPrice
	commission := b.costs.Commission(notional)
	slippageCost := math.Abs(execPrice-price) * float64(quantity)

	if pos, held := b.portfolio.Positions[symbol]; held {
		totalQty := pos.Quantity + quantity
		pos.EntryPrice = (pos.EntryPrice*float64(pos.Quantity) + execPrice*float64(quantity)) / float64(totalQty)
		pos.Quantity = totalQty
		pos.CurrentPrice = execPrice
	} else {
		b.portfolio.Positions[symbol] = &domain.Position{
			Symbol:       symbol,
			Quantity:     quantity,
			EntryPrice:   execPrice,
			EntryDate:    date,
			CurrentPrice: execPrice,
		}
	}

	b.portfolio.Cash -= notional + commission
	b.totalCommission += commission
	b.totalSlippage += slippageCost

	b.portfolio.Trades = append(b.portfolio.Trades, domain.Trade{
		Date:       date,
		Symbol:     symbol,
		Action:     domain.ActionBuy,
		Quantity:   quantity,
		Price:      execPrice,
		Commission: commission,
		Slippage:   slippageCost,
	})
}

// sell executes a sell intent: slippage-adjusted price, commission, tax,
// cash credit, realized PnL, and position removal at zero quantity.
func (b *book) sell(symbol string, quantity int64, price float64, date time.Time) {
	pos := b.portfolio.Positions[symbol]

	execPrice := b.costs.SellPrice(price)
	notional := float64(quantity) * execPrice
	commission := b.costs.Commission(notional)
	tax := b.costs.Tax(notional)
	slippageCost := math.Abs(price-execPrice) * float64(quantity)
	realizedPnL := (execPrice-pos.EntryPrice)*float64(quantity) - commission - tax

	entryPrice := pos.EntryPrice
	b.portfolio.Cash += notional - commission - tax
	pos.Quantity -= quantity
	if pos.Quantity == 0 {
		delete(b.portfolio.Positions, symbol)
	}

	b.totalCommission += commission
	b.totalTax += tax
	b.totalSlippage += slippageCost

	b.portfolio.Trades = append(b.portfolio.Trades, domain.Trade{
		Date:        date,
		Symbol:      symbol,
		Action:      domain.ActionSell,
		Quantity:    quantity,
		Price:       execPrice,
		Commission:  commission,
		Tax:         tax,
		Slippage:    slippageCost,
		EntryPrice:  entryPrice,
		RealizedPnL: realizedPnL,
	})
}

// updateNAV marks open positions to market, appends one NAV observation,
// and derives the daily return once two observations exist.
func (b *book) updateNAV(date time.Time, prices map[string]float64) {
	b.portfolio.UpdatePrices(prices)

	nav := b.portfolio.TotalValue()
	b.navHistory = append(b.navHistory, domain.NAVPoint{Date: date, Value: nav})

	if n := len(b.navHistory); n > 1 {
		prev := b.navHistory[n-2].Value
		ret := 0.0
		if prev > 0 {
			ret = nav/prev - 1
		}
		b.dailyReturns = append(b.dailyReturns, ret)
	}
}

// navValues extracts the raw NAV series
func (b *book) navValues() []float64 {
	values := make([]float64, len(b.navHistory))
	for i, point := range b.navHistory {
		values[i] = point.Value
	}
	return values
}

func (b *book) totalCosts() float64 {
	return b.totalCommission + b.totalTax + b.totalSlippage
}
