package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/domain"
)

// Scenario is one parameter set in a batch sweep
type Scenario struct {
	Label    string
	Config   Config
	Universe []string
}

// ScenarioResult pairs a scenario with its outcome. Err is set when the
// run failed; Result is nil in that case.
type ScenarioResult struct {
	RunID  string
	Label  string
	Result *domain.Result
	Err    error
}

// Batch runs scenario sweeps over a worker pool. Every scenario gets its
// own runner, ledger and risk state; only the price table is shared, and
// it is read-only during runs.
type Batch struct {
	numWorkers int
	log        zerolog.Logger
}

// NewBatch creates a batch executor
func NewBatch(numWorkers int, log zerolog.Logger) *Batch {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &Batch{
		numWorkers: numWorkers,
		log:        log.With().Str("component", "batch").Logger(),
	}
}

type batchJob struct {
	index    int
	scenario Scenario
}

type batchResult struct {
	index  int
	result ScenarioResult
}

// Run executes all scenarios and returns results in scenario order.
// Cancellation is scenario-granular: in-flight runs abort at their next
// trading date and unstarted scenarios report the context error.
func (b *Batch) Run(ctx context.Context, table *domain.PriceTable, scenarios []Scenario, start, end time.Time) []ScenarioResult {
	if len(scenarios) == 0 {
		return []ScenarioResult{}
	}

	jobs := make(chan batchJob, len(scenarios))
	results := make(chan batchResult, len(scenarios))

	workers := b.numWorkers
	if len(scenarios) < workers {
		workers = len(scenarios)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.worker(ctx, jobs, results, table, start, end)
		}()
	}

	for idx, scenario := range scenarios {
		jobs <- batchJob{index: idx, scenario: scenario}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]ScenarioResult, len(scenarios))
	for res := range results {
		ordered[res.index] = res.result
	}
	return ordered
}

func (b *Batch) worker(ctx context.Context, jobs <-chan batchJob, results chan<- batchResult, table *domain.PriceTable, start, end time.Time) {
	for job := range jobs {
		runID := uuid.NewString()

		result, err := New(job.scenario.Config, b.log).Run(ctx, table, job.scenario.Universe, start, end)
		if err != nil {
			b.log.Warn().Str("label", job.scenario.Label).Err(err).Msg("Scenario failed")
		} else {
			result.RunID = runID
		}

		results <- batchResult{
			index: job.index,
			result: ScenarioResult{
				RunID:  runID,
				Label:  job.scenario.Label,
				Result: result,
				Err:    err,
			},
		}
	}
}

// Summary holds cross-scenario statistics for one metric
type Summary struct {
	Mean   float64
	Median float64
	StdDev float64
}

// Summarize computes mean/median/stddev of the headline metrics across
// successful scenarios. Failed scenarios are excluded.
func Summarize(results []ScenarioResult) map[string]Summary {
	series := map[string][]float64{
		"cagr":         {},
		"sharpe_ratio": {},
		"max_drawdown": {},
	}

	for _, res := range results {
		if res.Err != nil || res.Result == nil {
			continue
		}
		for key := range series {
			if value, ok := res.Result.Metrics[key]; ok {
				series[key] = append(series[key], value)
			}
		}
	}

	summaries := make(map[string]Summary, len(series))
	for key, values := range series {
		if len(values) == 0 {
			continue
		}

		mean, _ := stats.Mean(values)
		median, _ := stats.Median(values)
		stdDev := 0.0
		if len(values) > 1 {
			stdDev, _ = stats.StandardDeviationSample(values)
		}
		summaries[key] = Summary{Mean: mean, Median: median, StdDev: stdDev}
	}
	return summaries
}
