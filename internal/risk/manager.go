package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/domain"
	"github.com/quantkr/backtester/pkg/formulas"
)

// Config holds risk manager limits. MaxDrawdownThreshold is always a
// negative decimal fraction (-0.15 = breaker trips below -15%); the same
// convention applies to every drawdown/stop threshold in this codebase.
type Config struct {
	PositionCap          float64 // max weight per symbol (0..1)
	PortfolioVolTarget   float64 // annualized volatility ceiling
	MaxDrawdownThreshold float64 // negative decimal fraction
	CooldownDays         int     // re-entry lockout after a sell
	MaxCorrelation       float64 // max |correlation| with any held symbol
	MinLiquidity         float64 // min average daily traded value
}

// DefaultConfig returns the standard limits
func DefaultConfig() Config {
	return Config{
		PositionCap:          0.25,
		PortfolioVolTarget:   0.12,
		MaxDrawdownThreshold: -0.15,
		CooldownDays:         5,
		MaxCorrelation:       0.7,
		MinLiquidity:         3e8,
	}
}

// Manager is an independent predicate set consulted before committing
// trades. The cooldown tracker is per-instance state, so concurrent
// scenario runs with their own Manager never interfere.
type Manager struct {
	cfg      Config
	cooldown map[string]time.Time // symbol -> last sell date
	log      zerolog.Logger
}

// New creates a risk manager with its own cooldown tracker
func New(cfg Config, log zerolog.Logger) *Manager {
	if cfg.PositionCap <= 0 {
		cfg.PositionCap = 0.25
	}
	if cfg.CooldownDays <= 0 {
		cfg.CooldownDays = 5
	}

	return &Manager{
		cfg:      cfg,
		cooldown: make(map[string]time.Time),
		log:      log.With().Str("component", "risk").Logger(),
	}
}

// CheckPositionSize rejects proposed weights above the per-symbol cap
func (m *Manager) CheckPositionSize(symbol string, proposedWeight float64) (bool, string) {
	if proposedWeight > m.cfg.PositionCap {
		return false, fmt.Sprintf("position cap exceeded for %s: %.2f%% > %.2f%%",
			symbol, proposedWeight*100, m.cfg.PositionCap*100)
	}
	return true, ""
}

// CheckPortfolioVolatility computes annualized portfolio volatility from
// the weight vector and the covariance matrix of the given daily return
// series (w'Σw quadratic form, ×√252). Soft check: callers treat a breach
// as a warning, not a hard rejection.
func (m *Manager) CheckPortfolioVolatility(returns map[string][]float64, weights map[string]float64) (bool, float64) {
	if len(returns) == 0 {
		return true, 0
	}

	symbols := make([]string, 0, len(returns))
	minLen := math.MaxInt
	for symbol, series := range returns {
		symbols = append(symbols, symbol)
		if len(series) < minLen {
			minLen = len(series)
		}
	}
	sort.Strings(symbols)

	if minLen < 2 {
		return true, 0
	}

	// Align all series to the common trailing length before covariances.
	aligned := make([][]float64, len(symbols))
	for i, symbol := range symbols {
		series := returns[symbol]
		aligned[i] = series[len(series)-minLen:]
	}

	var portfolioVar float64
	for i, si := range symbols {
		wi := weights[si]
		if wi == 0 {
			continue
		}
		for j, sj := range symbols {
			wj := weights[sj]
			if wj == 0 {
				continue
			}
			portfolioVar += wi * wj * formulas.Covariance(aligned[i], aligned[j])
		}
	}

	if portfolioVar < 0 {
		portfolioVar = 0
	}
	annualVol := math.Sqrt(portfolioVar) * math.Sqrt(252)

	return annualVol <= m.cfg.PortfolioVolTarget, annualVol
}

// CheckDrawdown trips when the worst trailing drawdown of the NAV series
// falls below the (negative) threshold. Hard check.
func (m *Manager) CheckDrawdown(navSeries []float64) (bool, float64) {
	if len(navSeries) == 0 {
		return true, 0
	}

	minDD := formulas.MinDrawdown(navSeries)
	if minDD < m.cfg.MaxDrawdownThreshold {
		return false, minDD
	}
	return true, minDD
}

// CheckCooldown reports whether a symbol may be re-bought. The tracker
// entry is cleared once the window has elapsed and the symbol is queried
// again. Returns the remaining lockout days when still blocked.
func (m *Manager) CheckCooldown(symbol string, date time.Time) (bool, int) {
	lastSell, tracked := m.cooldown[symbol]
	if !tracked {
		return true, 0
	}

	daysPassed := int(domain.Day(date).Sub(domain.Day(lastSell)).Hours() / 24)
	if daysPassed < m.cfg.CooldownDays {
		return false, m.cfg.CooldownDays - daysPassed
	}

	delete(m.cooldown, symbol)
	return true, 0
}

// RegisterSell starts the re-entry cooldown for a symbol
func (m *Manager) RegisterSell(symbol string, date time.Time) {
	m.cooldown[symbol] = domain.Day(date)
	m.log.Debug().Str("symbol", symbol).Time("sold", date).Msg("Cooldown registered")
}

// CheckCorrelation rejects a candidate whose daily returns correlate too
// strongly with any currently held symbol. Soft check.
func (m *Manager) CheckCorrelation(returns map[string][]float64, held []string, candidate string) (bool, float64) {
	candidateReturns, ok := returns[candidate]
	if !ok || len(held) == 0 {
		return true, 0
	}

	var maxCorr float64
	for _, symbol := range held {
		heldReturns, ok := returns[symbol]
		if !ok {
			continue
		}

		n := len(candidateReturns)
		if len(heldReturns) < n {
			n = len(heldReturns)
		}
		if n < 2 {
			continue
		}

		corr := math.Abs(formulas.Correlation(
			candidateReturns[len(candidateReturns)-n:],
			heldReturns[len(heldReturns)-n:],
		))
		if corr > maxCorr {
			maxCorr = corr
		}
	}

	if maxCorr > m.cfg.MaxCorrelation {
		return false, maxCorr
	}
	return true, maxCorr
}

// CheckLiquidity rejects symbols whose average daily traded value is below
// the floor
func (m *Manager) CheckLiquidity(symbol string, avgTradedValue float64) (bool, string) {
	if avgTradedValue < m.cfg.MinLiquidity {
		return false, fmt.Sprintf("insufficient liquidity for %s: %.0f < %.0f",
			symbol, avgTradedValue, m.cfg.MinLiquidity)
	}
	return true, ""
}

// TradeRequest carries the state ValidateTrade needs for one proposed trade
type TradeRequest struct {
	Symbol         string
	Action         domain.Action
	ProposedWeight float64
	Date           time.Time
	Weights        map[string]float64   // prospective portfolio weights incl. this trade
	Returns        map[string][]float64 // daily return history per symbol
	Held           []string             // currently held symbols
	NAVSeries      []float64
}

// ValidateTrade composes the relevant checks for a trade direction. Hard
// checks reject; soft checks (volatility, correlation) pass with a warning
// so the caller can log them without blocking the trade.
func (m *Manager) ValidateTrade(req TradeRequest) (bool, []string) {
	var warnings []string

	switch req.Action {
	case domain.ActionBuy:
		if ok, reason := m.CheckPositionSize(req.Symbol, req.ProposedWeight); !ok {
			return false, append(warnings, reason)
		}
		if ok, remaining := m.CheckCooldown(req.Symbol, req.Date); !ok {
			return false, append(warnings, fmt.Sprintf("cooldown active for %s: %d days remaining", req.Symbol, remaining))
		}
		if ok, vol := m.CheckPortfolioVolatility(req.Returns, req.Weights); !ok {
			warnings = append(warnings, fmt.Sprintf("portfolio volatility %.2f%% above target %.2f%%",
				vol*100, m.cfg.PortfolioVolTarget*100))
		}
		if ok, corr := m.CheckCorrelation(req.Returns, req.Held, req.Symbol); !ok {
			warnings = append(warnings, fmt.Sprintf("correlation %.2f with held symbols above limit %.2f",
				corr, m.cfg.MaxCorrelation))
		}
		return true, warnings

	case domain.ActionSell:
		if ok, dd := m.CheckDrawdown(req.NAVSeries); !ok {
			return false, append(warnings, fmt.Sprintf("drawdown %.2f%% below threshold %.2f%%",
				dd*100, m.cfg.MaxDrawdownThreshold*100))
		}
		return true, warnings

	default:
		return true, warnings
	}
}
