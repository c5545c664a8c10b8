package runner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/domain"
	"github.com/quantkr/backtester/internal/ledger"
	"github.com/quantkr/backtester/internal/regime"
	"github.com/quantkr/backtester/internal/risk"
	"github.com/quantkr/backtester/internal/signal"
)

// Config holds everything one backtest run needs
type Config struct {
	InitialCapital     float64
	CommissionRate     float64
	SlippageRate       float64
	MaxPositions       int
	RebalanceThreshold float64
	RebalanceFrequency domain.RebalanceFrequency
	Instrument         domain.InstrumentType
	LookbackBars       int     // trailing window handed to the signal generator
	StopLoss           float64 // negative decimal fraction; 0 disables the sweep
	Benchmark          string  // symbol used for regime detection; empty disables
	Regime             regime.Config
	Risk               risk.Config
}

// DefaultConfig returns a runnable configuration with Korean-market cost
// defaults and the weekly schedule
func DefaultConfig() Config {
	return Config{
		InitialCapital:     10_000_000,
		CommissionRate:     0.00015,
		SlippageRate:       0.001,
		MaxPositions:       10,
		RebalanceThreshold: 0.01,
		RebalanceFrequency: domain.RebalanceWeekly,
		Instrument:         domain.InstrumentETF,
		LookbackBars:       80,
		StopLoss:           -0.10,
		Regime:             regime.DefaultConfig(),
		Risk:               risk.DefaultConfig(),
	}
}

// Runner drives one simulation: it walks trading dates, consults the
// regime detector and signal generator, applies risk checks, and feeds
// trade intents to a fresh ledger. A Runner is single-use; Run builds all
// per-run state itself.
type Runner struct {
	cfg Config
	log zerolog.Logger
}

// New creates a backtest runner
func New(cfg Config, log zerolog.Logger) *Runner {
	if !cfg.RebalanceFrequency.Valid() {
		cfg.RebalanceFrequency = domain.RebalanceWeekly
	}
	if cfg.LookbackBars <= 0 {
		cfg.LookbackBars = 80
	}

	return &Runner{
		cfg: cfg,
		log: log.With().Str("component", "runner").Logger(),
	}
}

// Run simulates the strategy over [start, end]. The universe is the
// tradeable symbol set; the benchmark symbol only drives regime detection
// and is never traded. Returns an error only for unusable inputs; a run
// that never trades still produces a result.
func (r *Runner) Run(ctx context.Context, table *domain.PriceTable, universe []string, start, end time.Time) (*domain.Result, error) {
	if table == nil || len(universe) == 0 {
		return nil, fmt.Errorf("no universe to simulate")
	}

	dates := table.TradingDates(start, end)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no trading dates between %s and %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	book := ledger.New(ledger.Config{
		InitialCapital:     r.cfg.InitialCapital,
		CommissionRate:     r.cfg.CommissionRate,
		SlippageRate:       r.cfg.SlippageRate,
		MaxPositions:       r.cfg.MaxPositions,
		RebalanceThreshold: r.cfg.RebalanceThreshold,
		Instrument:         r.cfg.Instrument,
	}, r.log)
	riskMgr := risk.New(r.cfg.Risk, r.log)
	detector := regime.New(r.cfg.Regime, r.log)
	generator := signal.NewGenerator(r.log)

	sortedUniverse := append([]string(nil), universe...)
	sort.Strings(sortedUniverse)

	schedule := rebalanceDates(dates, r.cfg.RebalanceFrequency)

	var signalDays, rawSignals, filteredSignals int

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prices := table.ClosesAt(date)
		if len(prices) == 0 {
			continue
		}

		currentRegime, confidence := r.detectRegime(detector, table, date)

		book.UpdateNAV(date, prices)

		r.sweepStopLosses(book, riskMgr, prices, date)

		if !schedule[date] {
			continue
		}

		defensive := detector.ShouldEnterDefenseMode(currentRegime, confidence) || r.isChoppy(detector, table, date)
		if defensive {
			currentRegime = regime.Bear
		}

		var targets map[string]float64
		if defensive {
			// Full liquidation: every held symbol is absent from the targets.
			targets = map[string]float64{}
		} else {
			var raw int
			targets, raw = r.selectTargets(book, riskMgr, generator, detector, table, sortedUniverse, date, currentRegime, confidence)
			rawSignals += raw
			if raw > 0 {
				signalDays++
			}
			filteredSignals += len(targets)
		}

		heldBefore := heldSymbols(book.Portfolio())
		book.Rebalance(targets, prices, date)

		// Fully exited symbols start their re-entry cooldown.
		for _, symbol := range heldBefore {
			if _, still := book.Portfolio().Positions[symbol]; !still {
				riskMgr.RegisterSell(symbol, date)
			}
		}
	}

	metrics := book.PerformanceMetrics()
	metrics["signal_days"] = float64(signalDays)
	metrics["raw_signal_count"] = float64(rawSignals)
	metrics["filtered_signal_count"] = float64(filteredSignals)
	metrics["order_count"] = float64(len(book.Trades()))

	stats := detector.Stats()
	metrics["regime_bull_days"] = float64(stats.BullDays)
	metrics["regime_bear_days"] = float64(stats.BearDays)
	metrics["regime_neutral_days"] = float64(stats.NeutralDays)
	metrics["regime_changes"] = float64(stats.RegimeChanges)

	r.log.Info().
		Int("trading_days", len(dates)).
		Int("trades", len(book.Trades())).
		Float64("final_value", metrics["final_value"]).
		Msg("Run complete")

	return &domain.Result{
		Metrics:        metrics,
		NAVHistory:     book.NAVHistory(),
		Trades:         book.Trades(),
		FinalPositions: book.FinalPositions(),
	}, nil
}

// detectRegime classifies the date from benchmark history, neutral when no
// benchmark is configured
func (r *Runner) detectRegime(detector *regime.Detector, table *domain.PriceTable, date time.Time) (regime.Label, float64) {
	if r.cfg.Benchmark == "" {
		return regime.Neutral, 0.5
	}
	history := table.History(r.cfg.Benchmark, date)
	return detector.Detect(domain.Closes(history), date)
}

func (r *Runner) isChoppy(detector *regime.Detector, table *domain.PriceTable, date time.Time) bool {
	if r.cfg.Benchmark == "" {
		return false
	}

	history := table.History(r.cfg.Benchmark, date)
	high := make([]float64, len(history))
	low := make([]float64, len(history))
	closes := make([]float64, len(history))
	for i, bar := range history {
		high[i], low[i], closes[i] = bar.High, bar.Low, bar.Close
	}
	return detector.IsChoppy(high, low, closes)
}

// sweepStopLosses sells every position whose loss from average cost has
// reached the stop threshold, and registers the cooldown immediately
func (r *Runner) sweepStopLosses(book *ledger.PortfolioLedger, riskMgr *risk.Manager, prices map[string]float64, date time.Time) {
	if r.cfg.StopLoss >= 0 {
		return
	}

	for _, symbol := range heldSymbols(book.Portfolio()) {
		pos := book.Portfolio().Positions[symbol]
		price, ok := prices[symbol]
		if !ok || pos.EntryPrice <= 0 {
			continue
		}

		loss := price/pos.EntryPrice - 1
		if loss > r.cfg.StopLoss {
			continue
		}

		r.log.Debug().
			Str("symbol", symbol).
			Float64("loss_pct", loss*100).
			Time("date", date).
			Msg("Stop loss triggered")

		if book.ExecuteSell(symbol, pos.Quantity, price, date) {
			riskMgr.RegisterSell(symbol, date)
		}
	}
}

// selectTargets builds the equal-weight target map for a rebalance date.
// Returns the targets and the raw BUY-signal count before risk filtering.
func (r *Runner) selectTargets(
	book *ledger.PortfolioLedger,
	riskMgr *risk.Manager,
	generator *signal.Generator,
	detector *regime.Detector,
	table *domain.PriceTable,
	universe []string,
	date time.Time,
	currentRegime regime.Label,
	confidence float64,
) (map[string]float64, int) {
	type candidate struct {
		symbol     string
		confidence float64
	}

	held := heldSymbols(book.Portfolio())
	returns := returnHistory(table, universe, date, r.cfg.LookbackBars)
	proposedWeight := 1.0 / float64(r.cfg.MaxPositions)

	var candidates []candidate
	raw := 0
	for _, symbol := range universe {
		window := table.Window(symbol, date, r.cfg.LookbackBars)
		if len(window) < generator.MinBars() {
			continue
		}

		sig := generator.Combined(signal.NewWindow(window))
		if sig.Action != domain.ActionBuy {
			continue
		}
		raw++

		// Prospective weights: equal slices for the held set plus this candidate.
		weights := make(map[string]float64, len(held)+1)
		for _, h := range held {
			weights[h] = proposedWeight
		}
		weights[symbol] = proposedWeight

		ok, warnings := riskMgr.ValidateTrade(risk.TradeRequest{
			Symbol:         symbol,
			Action:         domain.ActionBuy,
			ProposedWeight: proposedWeight,
			Date:           date,
			Weights:        weights,
			Returns:        returns,
			Held:           held,
			NAVSeries:      navValues(book.NAVHistory()),
		})
		for _, warning := range warnings {
			r.log.Warn().Str("symbol", symbol).Str("check", warning).Msg("Risk warning")
		}
		if !ok {
			continue
		}

		if avg := table.AvgTradedValue(symbol, date, 20); avg > 0 {
			if ok, reason := riskMgr.CheckLiquidity(symbol, avg); !ok {
				r.log.Debug().Str("symbol", symbol).Str("reason", reason).Msg("Candidate dropped")
				continue
			}
		}

		candidates = append(candidates, candidate{symbol: symbol, confidence: sig.Confidence})
	}

	if len(candidates) == 0 {
		return map[string]float64{}, raw
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		return candidates[i].symbol < candidates[j].symbol
	})

	ratio := detector.PositionRatio(currentRegime, confidence)
	slots := int(math.Floor(float64(r.cfg.MaxPositions) * math.Min(ratio, 1)))
	if slots < 1 {
		slots = 1
	}
	if len(candidates) > slots {
		candidates = candidates[:slots]
	}

	weight := 1.0 / float64(len(candidates))
	targets := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		targets[c.symbol] = weight
	}
	return targets, raw
}

// rebalanceDates marks the dates that trigger a rebalance. The first
// trading date always rebalances so the run enters the market.
func rebalanceDates(dates []time.Time, freq domain.RebalanceFrequency) map[time.Time]bool {
	marked := make(map[time.Time]bool, len(dates))
	seenMonth := make(map[string]bool)

	for i, date := range dates {
		switch {
		case i == 0:
			marked[date] = true
		case freq == domain.RebalanceDaily:
			marked[date] = true
		case freq == domain.RebalanceWeekly:
			if date.Weekday() == time.Monday {
				marked[date] = true
			}
		case freq == domain.RebalanceMonthly:
			key := date.Format("2006-01")
			if !seenMonth[key] {
				marked[date] = true
			}
		}
		seenMonth[date.Format("2006-01")] = true
	}
	return marked
}

func heldSymbols(p *domain.Portfolio) []string {
	symbols := make([]string, 0, len(p.Positions))
	for symbol := range p.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func navValues(history []domain.NAVPoint) []float64 {
	values := make([]float64, len(history))
	for i, point := range history {
		values[i] = point.Value
	}
	return values
}

// returnHistory derives per-symbol daily returns over the lookback window
func returnHistory(table *domain.PriceTable, universe []string, date time.Time, lookback int) map[string][]float64 {
	returns := make(map[string][]float64, len(universe))
	for _, symbol := range universe {
		closes := domain.Closes(table.Window(symbol, date, lookback))
		if len(closes) < 2 {
			continue
		}

		series := make([]float64, 0, len(closes)-1)
		for i := 1; i < len(closes); i++ {
			if closes[i-1] > 0 {
				series = append(series, closes[i]/closes[i-1]-1)
			}
		}
		returns[symbol] = series
	}
	return returns
}
