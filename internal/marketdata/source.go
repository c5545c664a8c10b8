package marketdata

import (
	"time"

	"github.com/quantkr/backtester/internal/domain"
)

// Source loads daily bars into a price table. Implementations read their
// whole dataset up front; the simulation never touches the source again.
type Source interface {
	// Load returns a sorted price table for the given symbols over
	// [start, end]. Symbols without any data are absent from the table.
	Load(symbols []string, start, end time.Time) (*domain.PriceTable, error)
}
