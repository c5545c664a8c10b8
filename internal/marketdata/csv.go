package marketdata

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/domain"
)

// csvRow is one line of a price CSV. Dates are ISO (2024-01-02); the value
// column is optional and defaults to close×volume.
type csvRow struct {
	Symbol string  `csv:"symbol"`
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
	Value  float64 `csv:"value,omitempty"`
}

// CSVSource loads daily bars from a single CSV file holding all symbols
type CSVSource struct {
	path string
	log  zerolog.Logger
}

// NewCSVSource creates a CSV price source
func NewCSVSource(path string, log zerolog.Logger) *CSVSource {
	return &CSVSource{
		path: path,
		log:  log.With().Str("component", "marketdata").Str("source", "csv").Logger(),
	}
}

// Load reads the file and keeps rows for the requested symbols within
// [start, end]. Rows with unparseable dates fail the whole load; a price
// file with bad dates is corrupt, not partially usable.
func (s *CSVSource) Load(symbols []string, start, end time.Time) (*domain.PriceTable, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	var rows []csvRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse price file %s: %w", s.path, err)
	}

	wanted := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		wanted[symbol] = true
	}
	start, end = domain.Day(start), domain.Day(end)

	table := domain.NewPriceTable()
	kept := 0
	for _, row := range rows {
		if len(wanted) > 0 && !wanted[row.Symbol] {
			continue
		}

		date, err := time.Parse(time.DateOnly, row.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q for %s: %w", row.Date, row.Symbol, err)
		}
		date = domain.Day(date)
		if date.Before(start) || date.After(end) {
			continue
		}

		table.Add(row.Symbol, domain.Bar{
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
			Value:  row.Value,
		})
		kept++
	}
	table.Sort()

	s.log.Info().
		Str("path", s.path).
		Int("rows", len(rows)).
		Int("kept", kept).
		Msg("Price file loaded")
	return table, nil
}
