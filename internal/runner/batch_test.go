package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantkr/backtester/internal/domain"
	"github.com/quantkr/backtester/pkg/logger"
)

func TestBatch_RunsScenariosInOrder(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	start := day(2024, 1, 2)
	table := growthTable(map[string]float64{"A": 0.01, "B": 0.008}, start, 120)
	end := businessDays(start, 120)[119]

	base := DefaultConfig()
	base.StopLoss = 0

	weekly := base
	weekly.RebalanceFrequency = domain.RebalanceWeekly
	monthly := base
	monthly.RebalanceFrequency = domain.RebalanceMonthly

	scenarios := []Scenario{
		{Label: "weekly", Config: weekly, Universe: []string{"A", "B"}},
		{Label: "monthly", Config: monthly, Universe: []string{"A", "B"}},
		{Label: "broken", Config: base, Universe: nil}, // empty universe fails
	}

	results := NewBatch(2, log).Run(context.Background(), table, scenarios, start, end)
	require.Len(t, results, 3)

	assert.Equal(t, "weekly", results[0].Label)
	assert.Equal(t, "monthly", results[1].Label)
	assert.Equal(t, "broken", results[2].Label)

	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.Nil(t, results[2].Result)

	assert.NotEmpty(t, results[0].RunID)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
	assert.Equal(t, results[0].RunID, results[0].Result.RunID)
}

func TestBatch_EmptyScenarioList(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	results := NewBatch(2, log).Run(context.Background(), domain.NewPriceTable(), nil, day(2024, 1, 2), day(2024, 6, 28))
	assert.Empty(t, results)
}

func TestBatch_CancelledContext(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	start := day(2024, 1, 2)
	table := growthTable(map[string]float64{"A": 0.01}, start, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	results := NewBatch(1, log).Run(ctx, table, []Scenario{
		{Label: "s1", Config: cfg, Universe: []string{"A"}},
		{Label: "s2", Config: cfg, Universe: []string{"A"}},
	}, start, businessDays(start, 30)[29])

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Error(t, res.Err)
	}
}

func TestSummarize(t *testing.T) {
	results := []ScenarioResult{
		{Label: "a", Result: &domain.Result{Metrics: map[string]float64{
			"cagr": 10, "sharpe_ratio": 1.0, "max_drawdown": 5,
		}}},
		{Label: "b", Result: &domain.Result{Metrics: map[string]float64{
			"cagr": 20, "sharpe_ratio": 2.0, "max_drawdown": 15,
		}}},
		{Label: "failed", Err: context.Canceled},
	}

	summaries := Summarize(results)

	require.Contains(t, summaries, "cagr")
	assert.InDelta(t, 15, summaries["cagr"].Mean, 1e-9)
	assert.InDelta(t, 15, summaries["cagr"].Median, 1e-9)
	assert.Greater(t, summaries["cagr"].StdDev, 0.0)

	require.Contains(t, summaries, "sharpe_ratio")
	assert.InDelta(t, 1.5, summaries["sharpe_ratio"].Mean, 1e-9)
}

func TestSummarize_AllFailed(t *testing.T) {
	summaries := Summarize([]ScenarioResult{{Label: "x", Err: context.Canceled}})
	assert.Empty(t, summaries)
}
