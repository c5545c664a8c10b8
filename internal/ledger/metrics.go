package ledger

import (
	"github.com/quantkr/backtester/internal/domain"
	"github.com/quantkr/backtester/pkg/formulas"
)

// PerformanceMetrics computes the run's statistics from NAV and trade
// history. Returns an empty map when no NAV observations exist, which
// callers read as "no trades executed / insufficient data".
//
// Percentages are reported as percent values (12.5 = 12.5%); ratios
// (sharpe, calmar) are unitless.
func (l *PortfolioLedger) PerformanceMetrics() map[string]float64 {
	if len(l.net.navHistory) == 0 {
		return map[string]float64{}
	}

	navs := l.net.navValues()
	finalNAV := navs[len(navs)-1]
	initial := l.cfg.InitialCapital

	start := l.net.navHistory[0].Date
	end := l.net.navHistory[len(l.net.navHistory)-1].Date
	calendarDays := int(end.Sub(start).Hours() / 24)
	years := formulas.Years(calendarDays)

	totalReturn := 0.0
	if initial > 0 {
		totalReturn = (finalNAV/initial - 1) * 100
	}
	cagr := formulas.CAGR(finalNAV, initial, years) * 100

	returns := l.net.dailyReturns
	volatility := formulas.AnnualizedVolatility(returns) * 100
	sharpe := formulas.SharpeRatio(returns)
	sortino := formulas.SortinoRatio(returns)
	maxDrawdown := formulas.MaxDrawdown(navs) * 100

	calmar := 0.0
	if maxDrawdown > 0 {
		calmar = cagr / maxDrawdown
	}

	dailyWinRate := 0.0
	if len(returns) > 0 {
		wins := 0
		for _, ret := range returns {
			if ret > 0 {
				wins++
			}
		}
		dailyWinRate = float64(wins) / float64(len(returns)) * 100
	}

	sells, sellWins := 0, 0
	for _, trade := range l.net.portfolio.Trades {
		if trade.Action != domain.ActionSell {
			continue
		}
		sells++
		if trade.RealizedPnL > 0 {
			sellWins++
		}
	}
	tradeWinRate := 0.0
	if sells > 0 {
		tradeWinRate = float64(sellWins) / float64(sells) * 100
	}

	costRatio := 0.0
	if initial > 0 {
		costRatio = l.net.totalCosts() / initial * 100
	}

	grossNAVs := l.gross.navValues()
	grossFinal := grossNAVs[len(grossNAVs)-1]
	grossReturn := 0.0
	if initial > 0 {
		grossReturn = (grossFinal/initial - 1) * 100
	}
	grossCAGR := formulas.CAGR(grossFinal, initial, years) * 100

	return map[string]float64{
		"total_return":     totalReturn,
		"cagr":             cagr,
		"volatility":       volatility,
		"sharpe_ratio":     sharpe,
		"sortino_ratio":    sortino,
		"max_drawdown":     maxDrawdown,
		"calmar_ratio":     calmar,
		"daily_win_rate":   dailyWinRate,
		"trade_win_rate":   tradeWinRate,
		"total_trades":     float64(len(l.net.portfolio.Trades)),
		"final_value":      finalNAV,
		"total_commission": l.net.totalCommission,
		"total_tax":        l.net.totalTax,
		"total_slippage":   l.net.totalSlippage,
		"total_costs":      l.net.totalCosts(),
		"cost_ratio":       costRatio,
		"gross_return":     grossReturn,
		"gross_cagr":       grossCAGR,
		"cost_drag":        grossReturn - totalReturn,
	}
}
