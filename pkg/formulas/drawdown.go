package formulas

// MaxDrawdown calculates the maximum drawdown from a value series.
//
// Drawdown Formula:
//
//	Drawdown[t] = 1 - Value[t] / RunningMax(Value)[t]
//	Max Drawdown = maximum of all drawdowns
//
// The result is always reported as a non-negative fraction
// (0.25 = 25% decline from peak). Returns 0 for series shorter than 2.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}

		if peak > 0 {
			drawdown := 1 - v/peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// CurrentDrawdown calculates the drawdown of the last value relative to the
// running peak, as a signed fraction (0 at the peak, negative below it).
func CurrentDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}

	if peak <= 0 {
		return 0
	}

	return values[len(values)-1]/peak - 1
}

// MinDrawdown returns the most negative drawdown observed anywhere in the
// series, as a signed fraction. Used by the drawdown circuit breaker, which
// compares against a negative threshold.
func MinDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	minDD := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}

		if peak > 0 {
			dd := v/peak - 1
			if dd < minDD {
				minDD = dd
			}
		}
	}

	return minDD
}
