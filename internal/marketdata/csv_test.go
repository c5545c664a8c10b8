package marketdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantkr/backtester/pkg/logger"
)

func writePriceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVSource_Load(t *testing.T) {
	path := writePriceFile(t, `symbol,date,open,high,low,close,volume
069500,2024-01-02,30000,30500,29800,30200,120000
069500,2024-01-03,30200,30700,30100,30600,110000
005930,2024-01-02,70000,71000,69500,70500,500000
229200,2024-01-02,9000,9100,8900,9050,80000
`)

	log := logger.New(logger.Config{Level: "error"})
	source := NewCSVSource(path, log)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	table, err := source.Load([]string{"069500", "005930"}, start, end)
	require.NoError(t, err)

	// The unrequested symbol is filtered out.
	assert.Equal(t, []string{"005930", "069500"}, table.Symbols())

	bar, ok := table.Bar("069500", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 30_600.0, bar.Close)
	// Value defaults to close×volume when the column is absent.
	assert.Equal(t, 30_600.0*110_000, bar.Value)

	dates := table.TradingDates(start, end)
	assert.Len(t, dates, 2)
}

func TestCSVSource_DateRangeFilter(t *testing.T) {
	path := writePriceFile(t, `symbol,date,open,high,low,close,volume
A,2024-01-02,100,101,99,100,1000
A,2024-02-02,100,101,99,110,1000
A,2024-03-02,100,101,99,120,1000
`)

	source := NewCSVSource(path, logger.New(logger.Config{Level: "error"}))
	table, err := source.Load([]string{"A"},
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	dates := table.TradingDates(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.Len(t, dates, 1)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), dates[0])
}

func TestCSVSource_BadDateFailsLoad(t *testing.T) {
	path := writePriceFile(t, `symbol,date,open,high,low,close,volume
A,02/01/2024,100,101,99,100,1000
`)

	source := NewCSVSource(path, logger.New(logger.Config{Level: "error"}))
	_, err := source.Load([]string{"A"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestCSVSource_MissingFile(t *testing.T) {
	source := NewCSVSource("/nonexistent/prices.csv", logger.New(logger.Config{Level: "error"}))
	_, err := source.Load(nil, time.Now(), time.Now())
	assert.Error(t, err)
}
