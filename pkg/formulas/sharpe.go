package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from daily returns,
// assuming a zero risk-free rate.
//
// Sharpe Formula:
//
//	Sharpe = mean(daily returns) / sample stddev(daily returns) × sqrt(252)
//
// Defined as 0 when fewer than two returns exist or the standard
// deviation is zero (constant returns carry no risk signal).
func SharpeRatio(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}

	stdDev := StdDev(dailyReturns)
	if stdDev == 0 {
		return 0
	}

	return Mean(dailyReturns) / stdDev * math.Sqrt(252)
}

// SortinoRatio calculates the annualized Sortino ratio from daily returns
// (downside-deviation variant of Sharpe, zero risk-free rate).
func SortinoRatio(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}

	var downsideSquaredSum float64
	for _, ret := range dailyReturns {
		if ret < 0 {
			downsideSquaredSum += ret * ret
		}
	}

	downsideDeviation := math.Sqrt(downsideSquaredSum / float64(len(dailyReturns)))
	if downsideDeviation == 0 {
		return 0
	}

	return Mean(dailyReturns) / downsideDeviation * math.Sqrt(252)
}
