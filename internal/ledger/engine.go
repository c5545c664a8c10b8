package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/domain"
)

// Config holds portfolio ledger parameters
type Config struct {
	InitialCapital     float64
	CommissionRate     float64
	SlippageRate       float64
	MaxPositions       int
	RebalanceThreshold float64 // minimum weight deviation that triggers a trade
	Instrument         domain.InstrumentType
}

// PortfolioLedger executes trade intents against two books in lock-step:
// a net book with real transaction costs and a gross book with none.
// Rejected intents mutate neither. All state is owned by the instance, so
// independent scenario runs never share anything.
type PortfolioLedger struct {
	cfg   Config
	net   *book
	gross *book
	log   zerolog.Logger
}

// New creates a portfolio ledger. The gross book mirrors every committed
// intent at the raw quoted price with zero fees.
func New(cfg Config, log zerolog.Logger) *PortfolioLedger {
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 10
	}
	if cfg.RebalanceThreshold <= 0 {
		cfg.RebalanceThreshold = 0.01
	}
	if !cfg.Instrument.Valid() {
		cfg.Instrument = domain.InstrumentDefault
	}

	costs := MarketCosts{
		CommissionRate: cfg.CommissionRate,
		SlippageRate:   cfg.SlippageRate,
		TaxRate:        cfg.Instrument.TaxRate(),
	}

	return &PortfolioLedger{
		cfg:   cfg,
		net:   newBook(cfg.InitialCapital, costs),
		gross: newBook(cfg.InitialCapital, ZeroCosts{}),
		log:   log.With().Str("component", "ledger").Logger(),
	}
}

// CanBuy checks the buy preconditions without mutating anything: the
// position-count cap for new symbols, then required cash including
// slippage and commission.
func (l *PortfolioLedger) CanBuy(symbol string, quantity int64, price float64) (bool, string) {
	if quantity <= 0 {
		return false, fmt.Sprintf("invalid quantity %d", quantity)
	}

	if _, held := l.net.portfolio.Positions[symbol]; !held {
		if len(l.net.portfolio.Positions) >= l.cfg.MaxPositions {
			return false, fmt.Sprintf("max position count reached (%d)", l.cfg.MaxPositions)
		}
	}

	execPrice := l.net.costs.BuyPrice(price)
	notional := float64(quantity) * execPrice
	required := notional + l.net.costs.Commission(notional)
	if required > l.net.portfolio.Cash {
		return false, fmt.Sprintf("insufficient cash: need %.2f, have %.2f", required, l.net.portfolio.Cash)
	}

	return true, ""
}

// ExecuteBuy commits a buy to both books. Returns false with no mutation
// when a precondition fails.
func (l *PortfolioLedger) ExecuteBuy(symbol string, quantity int64, price float64, date time.Time) bool {
	ok, reason := l.CanBuy(symbol, quantity, price)
	if !ok {
		l.log.Warn().
			Str("symbol", symbol).
			Int64("quantity", quantity).
			Str("reason", reason).
			Msg("Buy rejected")
		return false
	}

	l.net.buy(symbol, quantity, price, date)
	l.gross.buy(symbol, quantity, price, date)

	l.log.Debug().
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Float64("price", price).
		Msg("Buy executed")
	return true
}

// ExecuteSell commits a sell to both books. Returns false with no mutation
// when the symbol is not held or the quantity exceeds the holding.
func (l *PortfolioLedger) ExecuteSell(symbol string, quantity int64, price float64, date time.Time) bool {
	pos, held := l.net.portfolio.Positions[symbol]
	if !held {
		l.log.Warn().Str("symbol", symbol).Msg("Sell rejected: not held")
		return false
	}
	if quantity <= 0 || quantity > pos.Quantity {
		l.log.Warn().
			Str("symbol", symbol).
			Int64("quantity", quantity).
			Int64("held", pos.Quantity).
			Msg("Sell rejected: quantity exceeds holding")
		return false
	}

	l.net.sell(symbol, quantity, price, date)
	l.gross.sell(symbol, quantity, price, date)

	l.log.Debug().
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Float64("price", price).
		Msg("Sell executed")
	return true
}

// Rebalance moves the portfolio toward the target weights. For each target
// symbol the weight deviation is converted to a whole-share order when it
// exceeds the threshold; held symbols absent from the target set are fully
// liquidated. Symbols without a price that day are skipped.
func (l *PortfolioLedger) Rebalance(targetWeights map[string]float64, prices map[string]float64, date time.Time) {
	l.net.portfolio.UpdatePrices(prices)
	l.gross.portfolio.UpdatePrices(prices)

	totalValue := l.net.portfolio.TotalValue()
	if totalValue <= 0 {
		return
	}

	currentWeights := make(map[string]float64, len(l.net.portfolio.Positions))
	for symbol, pos := range l.net.portfolio.Positions {
		if _, ok := prices[symbol]; ok {
			currentWeights[symbol] = pos.MarketValue() / totalValue
		}
	}

	// Deterministic order: map iteration must not reorder trades between runs.
	targets := make([]string, 0, len(targetWeights))
	for symbol := range targetWeights {
		targets = append(targets, symbol)
	}
	sort.Strings(targets)

	for _, symbol := range targets {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			continue
		}

		weightDiff := targetWeights[symbol] - currentWeights[symbol]
		if math.Abs(weightDiff) <= l.cfg.RebalanceThreshold {
			continue
		}

		var currentValue float64
		if pos, held := l.net.portfolio.Positions[symbol]; held {
			currentValue = pos.MarketValue()
		}
		valueDiff := totalValue*targetWeights[symbol] - currentValue

		quantity := int64(math.Abs(valueDiff) / price)
		if quantity == 0 {
			continue
		}

		if valueDiff > 0 {
			l.ExecuteBuy(symbol, quantity, price, date)
		} else {
			l.ExecuteSell(symbol, quantity, price, date)
		}
	}

	held := make([]string, 0, len(l.net.portfolio.Positions))
	for symbol := range l.net.portfolio.Positions {
		held = append(held, symbol)
	}
	sort.Strings(held)

	for _, symbol := range held {
		if _, targeted := targetWeights[symbol]; targeted {
			continue
		}
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		l.ExecuteSell(symbol, l.net.portfolio.Positions[symbol].Quantity, price, date)
	}
}

// UpdateNAV appends one NAV observation per trading date to both books
func (l *PortfolioLedger) UpdateNAV(date time.Time, prices map[string]float64) {
	l.net.updateNAV(date, prices)
	l.gross.updateNAV(date, prices)
}

// Portfolio returns the net (real-cost) portfolio
func (l *PortfolioLedger) Portfolio() *domain.Portfolio {
	return l.net.portfolio
}

// NAVHistory returns the net NAV series
func (l *PortfolioLedger) NAVHistory() []domain.NAVPoint {
	return l.net.navHistory
}

// DailyReturns returns the derived net daily return series
func (l *PortfolioLedger) DailyReturns() []float64 {
	return l.net.dailyReturns
}

// Trades returns the net trade log in execution order
func (l *PortfolioLedger) Trades() []domain.Trade {
	return l.net.portfolio.Trades
}

// FinalPositions returns a value-copy snapshot of the net open positions
func (l *PortfolioLedger) FinalPositions() map[string]domain.Position {
	snapshot := make(map[string]domain.Position, len(l.net.portfolio.Positions))
	for symbol, pos := range l.net.portfolio.Positions {
		snapshot[symbol] = *pos
	}
	return snapshot
}
