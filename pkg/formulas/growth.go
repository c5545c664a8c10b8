package formulas

import "math"

// CAGR calculates the compound annual growth rate over a calendar-day span.
//
// CAGR Formula:
//
//	CAGR = (final / initial)^(1 / years) - 1
//
// years is calendar days / 365.25. Defined as 0 when years or the initial
// value is non-positive, or when the growth ratio is non-positive (a wiped
// out portfolio has no meaningful compounding rate).
func CAGR(final, initial, years float64) float64 {
	if years <= 0 || initial <= 0 {
		return 0
	}

	ratio := final / initial
	if ratio <= 0 {
		return 0
	}

	return math.Pow(ratio, 1/years) - 1
}

// Years converts a calendar-day count to fractional years.
func Years(calendarDays int) float64 {
	return float64(calendarDays) / 365.25
}
