package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/database"
	"github.com/quantkr/backtester/internal/domain"
)

// Repository persists finished backtest runs for later comparison
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// New creates a results repository
func New(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "results").Logger(),
	}
}

// Save stores one run with its configuration snapshot. The config is any
// JSON-serializable value; it is stored verbatim for reproducibility.
func (r *Repository) Save(result domain.Result, label string, config interface{}) error {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode run config: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO backtest_runs (run_id, label, created_at, config_json, result_json)
		 VALUES (?, ?, ?, ?, ?)`,
		result.RunID, label, time.Now().UTC().Format(time.RFC3339),
		string(configJSON), string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.RunID, err)
	}

	r.log.Info().Str("run_id", result.RunID).Str("label", label).Msg("Run saved")
	return nil
}

// Get loads one run by ID
func (r *Repository) Get(runID string) (domain.Result, error) {
	var resultJSON string
	err := r.db.QueryRow(
		`SELECT result_json FROM backtest_runs WHERE run_id = ?`, runID,
	).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return domain.Result{}, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var result domain.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return domain.Result{}, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return result, nil
}

// RunSummary is one row of the run listing
type RunSummary struct {
	RunID     string
	Label     string
	CreatedAt time.Time
}

// List returns saved runs, newest first
func (r *Repository) List(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT run_id, label, created_at FROM backtest_runs
		 ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var summary RunSummary
		var createdAt string
		if err := rows.Scan(&summary.RunID, &summary.Label, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			summary.CreatedAt = ts
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
