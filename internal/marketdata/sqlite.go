package marketdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/database"
	"github.com/quantkr/backtester/internal/domain"
)

// SQLiteSource loads daily bars from the daily_prices table
type SQLiteSource struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSQLiteSource creates a SQLite price source
func NewSQLiteSource(db *database.DB, log zerolog.Logger) *SQLiteSource {
	return &SQLiteSource{
		db:  db,
		log: log.With().Str("component", "marketdata").Str("source", "sqlite").Logger(),
	}
}

// Load queries bars for the requested symbols within [start, end]
func (s *SQLiteSource) Load(symbols []string, start, end time.Time) (*domain.PriceTable, error) {
	query := `SELECT symbol, date, open, high, low, close, volume, value
		FROM daily_prices
		WHERE date >= ? AND date <= ?`
	args := []interface{}{
		domain.Day(start).Format(time.DateOnly),
		domain.Day(end).Format(time.DateOnly),
	}

	if len(symbols) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
		query += fmt.Sprintf(" AND symbol IN (%s)", placeholders)
		for _, symbol := range symbols {
			args = append(args, symbol)
		}
	}
	query += " ORDER BY symbol, date"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	table := domain.NewPriceTable()
	count := 0
	for rows.Next() {
		var symbol, dateStr string
		var bar domain.Bar
		if err := rows.Scan(&symbol, &dateStr, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.Value); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}

		date, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return nil, fmt.Errorf("bad date %q for %s: %w", dateStr, symbol, err)
		}
		bar.Date = date

		table.Add(symbol, bar)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price rows: %w", err)
	}
	table.Sort()

	s.log.Info().Int("rows", count).Msg("Prices loaded from database")
	return table, nil
}

// SaveBars upserts bars for a symbol, used to seed the database from
// external feeds or CSV imports.
func (s *SQLiteSource) SaveBars(symbol string, bars []domain.Bar) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO daily_prices
		(symbol, date, open, high, low, close, volume, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.Exec(
			symbol,
			domain.Day(bar.Date).Format(time.DateOnly),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.Value,
		); err != nil {
			return fmt.Errorf("failed to upsert bar for %s: %w", symbol, err)
		}
	}

	return tx.Commit()
}
