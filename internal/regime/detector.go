package regime

import (
	"math"
	"time"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/pkg/formulas"
)

// Label classifies the prevailing market regime
type Label string

const (
	Bull    Label = "bull"
	Bear    Label = "bear"
	Neutral Label = "neutral"
)

// Config holds regime detection parameters. Thresholds are decimal
// fractions of the short/long MA spread.
type Config struct {
	ShortMAPeriod int
	LongMAPeriod  int
	BullThreshold float64
	BearThreshold float64
	ChopThreshold float64 // benchmark ADX below this means a choppy market
	Enabled       bool
}

// DefaultConfig returns the standard MA 50/200 setup
func DefaultConfig() Config {
	return Config{
		ShortMAPeriod: 50,
		LongMAPeriod:  200,
		BullThreshold: 0.02,
		BearThreshold: -0.02,
		ChopThreshold: 20,
		Enabled:       true,
	}
}

// Stats accumulates regime classifications across a run
type Stats struct {
	BullDays      int
	BearDays      int
	NeutralDays   int
	RegimeChanges int
}

// TotalDays returns the number of classified days
func (s Stats) TotalDays() int {
	return s.BullDays + s.BearDays + s.NeutralDays
}

// Detector classifies the market from a benchmark price series using the
// short/long moving-average spread. State is per-instance: the current
// regime and day counters belong to one run.
type Detector struct {
	cfg     Config
	current Label
	stats   Stats
	log     zerolog.Logger
}

// New creates a regime detector starting in the neutral regime
func New(cfg Config, log zerolog.Logger) *Detector {
	if cfg.ShortMAPeriod <= 0 {
		cfg.ShortMAPeriod = 50
	}
	if cfg.LongMAPeriod <= 0 {
		cfg.LongMAPeriod = 200
	}

	return &Detector{
		cfg:     cfg,
		current: Neutral,
		log:     log.With().Str("component", "regime").Logger(),
	}
}

// Detect classifies the regime from benchmark closes up to the current
// date (oldest first). Confidence grows with the MA spread, capped at 1.
// Insufficient history or disabled detection yields (neutral, 0.5) without
// touching the day counters.
func (d *Detector) Detect(benchmarkCloses []float64, date time.Time) (Label, float64) {
	if !d.cfg.Enabled || len(benchmarkCloses) < d.cfg.LongMAPeriod {
		return Neutral, 0.5
	}

	shortMA := formulas.Mean(benchmarkCloses[len(benchmarkCloses)-d.cfg.ShortMAPeriod:])
	longMA := formulas.Mean(benchmarkCloses[len(benchmarkCloses)-d.cfg.LongMAPeriod:])
	if longMA <= 0 {
		return Neutral, 0.5
	}

	maDiff := shortMA/longMA - 1

	var regime Label
	var confidence float64
	switch {
	case maDiff >= d.cfg.BullThreshold:
		regime = Bull
		confidence = math.Min(1, 0.5+maDiff*10)
		d.stats.BullDays++
	case maDiff <= d.cfg.BearThreshold:
		regime = Bear
		confidence = math.Min(1, 0.5+math.Abs(maDiff)*10)
		d.stats.BearDays++
	default:
		regime = Neutral
		confidence = 0.5
		d.stats.NeutralDays++
	}

	if regime != d.current {
		d.stats.RegimeChanges++
		d.log.Info().
			Time("date", date).
			Str("from", string(d.current)).
			Str("to", string(regime)).
			Float64("ma_diff_pct", maDiff*100).
			Msg("Regime change")
		d.current = regime
	}

	return regime, confidence
}

// PositionRatio scales target exposure by regime: 100-120% in a bull
// market, 40-60% in a bear market (higher confidence = less exposure),
// 80% when neutral.
func (d *Detector) PositionRatio(regime Label, confidence float64) float64 {
	switch regime {
	case Bull:
		return 1.0 + (confidence-0.5)*0.4
	case Bear:
		return 0.6 - (confidence-0.5)*0.4
	default:
		return 0.8
	}
}

// ShouldEnterDefenseMode reports whether new buys should be skipped
// entirely. Only a high-confidence bear market triggers it.
func (d *Detector) ShouldEnterDefenseMode(regime Label, confidence float64) bool {
	return regime == Bear && confidence >= 0.85
}

// IsChoppy reports whether the benchmark ADX signals a directionless
// market. Needs at least 2×period+1 bars of history; shorter series are
// never choppy.
func (d *Detector) IsChoppy(high, low, close []float64) bool {
	const period = 14
	if len(close) < 2*period+1 {
		return false
	}

	adx := talib.Adx(high, low, close, period)
	return adx[len(adx)-1] < d.cfg.ChopThreshold
}

// Stats returns the accumulated regime counters
func (d *Detector) Stats() Stats {
	return d.stats
}

// Current returns the most recently classified regime
func (d *Detector) Current() Label {
	return d.current
}
