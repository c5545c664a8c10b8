package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantkr/backtester/internal/domain"
	"github.com/quantkr/backtester/pkg/logger"
)

func newTestManager(cfg Config) *Manager {
	return New(cfg, logger.New(logger.Config{Level: "error"}))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckPositionSize(t *testing.T) {
	m := newTestManager(Config{PositionCap: 0.25, CooldownDays: 5})

	ok, _ := m.CheckPositionSize("A", 0.20)
	assert.True(t, ok)

	ok, reason := m.CheckPositionSize("A", 0.30)
	assert.False(t, ok)
	assert.Contains(t, reason, "position cap")
}

func TestCheckCooldown_WindowBoundaries(t *testing.T) {
	m := newTestManager(Config{PositionCap: 0.25, CooldownDays: 5})

	sellDate := day(2024, 3, 4)
	m.RegisterSell("A", sellDate)

	// Still blocked one day before the window closes.
	ok, remaining := m.CheckCooldown("A", sellDate.AddDate(0, 0, 4))
	assert.False(t, ok)
	assert.Equal(t, 1, remaining)

	// Free exactly at cooldown_days.
	ok, remaining = m.CheckCooldown("A", sellDate.AddDate(0, 0, 5))
	assert.True(t, ok)
	assert.Zero(t, remaining)

	// The entry was cleared by the successful query.
	ok, _ = m.CheckCooldown("A", sellDate)
	assert.True(t, ok)
}

func TestCheckCooldown_UntrackedSymbol(t *testing.T) {
	m := newTestManager(DefaultConfig())

	ok, remaining := m.CheckCooldown("never-sold", day(2024, 1, 2))
	assert.True(t, ok)
	assert.Zero(t, remaining)
}

func TestCheckDrawdown(t *testing.T) {
	m := newTestManager(Config{PositionCap: 0.25, CooldownDays: 5, MaxDrawdownThreshold: -0.15})

	ok, dd := m.CheckDrawdown([]float64{100, 95, 98})
	assert.True(t, ok)
	assert.InDelta(t, -0.05, dd, 1e-9)

	ok, dd = m.CheckDrawdown([]float64{100, 80, 90})
	assert.False(t, ok)
	assert.InDelta(t, -0.20, dd, 1e-9)

	ok, _ = m.CheckDrawdown(nil)
	assert.True(t, ok)
}

func TestCheckCorrelation(t *testing.T) {
	m := newTestManager(Config{PositionCap: 0.25, CooldownDays: 5, MaxCorrelation: 0.7})

	returns := map[string][]float64{
		"held":      {0.01, -0.02, 0.03, -0.01, 0.02},
		"twin":      {0.01, -0.02, 0.03, -0.01, 0.02},
		"unrelated": {0.02, 0.01, -0.03, 0.02, -0.01},
	}

	ok, corr := m.CheckCorrelation(returns, []string{"held"}, "twin")
	assert.False(t, ok)
	assert.InDelta(t, 1.0, corr, 1e-9)

	ok, _ = m.CheckCorrelation(returns, nil, "twin")
	assert.True(t, ok, "no holdings means nothing to correlate against")

	ok, _ = m.CheckCorrelation(returns, []string{"held"}, "unknown-symbol")
	assert.True(t, ok)
}

func TestCheckPortfolioVolatility(t *testing.T) {
	m := newTestManager(Config{PositionCap: 0.25, CooldownDays: 5, PortfolioVolTarget: 0.12})

	// Constant returns: zero variance, always within target.
	flat := map[string][]float64{"A": {0.001, 0.001, 0.001, 0.001}}
	ok, vol := m.CheckPortfolioVolatility(flat, map[string]float64{"A": 1.0})
	assert.True(t, ok)
	assert.Zero(t, vol)

	// Wild single-asset swings annualize far beyond a 12% target.
	wild := map[string][]float64{"A": {0.05, -0.05, 0.06, -0.04, 0.05, -0.06}}
	ok, vol = m.CheckPortfolioVolatility(wild, map[string]float64{"A": 1.0})
	assert.False(t, ok)
	assert.Greater(t, vol, 0.12)

	ok, vol = m.CheckPortfolioVolatility(nil, nil)
	assert.True(t, ok)
	assert.Zero(t, vol)
}

func TestCheckLiquidity(t *testing.T) {
	m := newTestManager(Config{PositionCap: 0.25, CooldownDays: 5, MinLiquidity: 3e8})

	ok, _ := m.CheckLiquidity("A", 5e8)
	assert.True(t, ok)

	ok, reason := m.CheckLiquidity("A", 1e8)
	assert.False(t, ok)
	assert.Contains(t, reason, "insufficient liquidity")
}

func TestValidateTrade_BuyHardAndSoftChecks(t *testing.T) {
	m := newTestManager(Config{
		PositionCap:          0.25,
		PortfolioVolTarget:   0.12,
		MaxDrawdownThreshold: -0.15,
		CooldownDays:         5,
		MaxCorrelation:       0.7,
	})

	// Hard reject: weight above cap.
	ok, warnings := m.ValidateTrade(TradeRequest{
		Symbol:         "A",
		Action:         domain.ActionBuy,
		ProposedWeight: 0.5,
		Date:           day(2024, 1, 2),
	})
	assert.False(t, ok)
	assert.NotEmpty(t, warnings)

	// Hard reject: cooldown active.
	m.RegisterSell("B", day(2024, 1, 2))
	ok, _ = m.ValidateTrade(TradeRequest{
		Symbol:         "B",
		Action:         domain.ActionBuy,
		ProposedWeight: 0.1,
		Date:           day(2024, 1, 4),
	})
	assert.False(t, ok)

	// Soft breach: high correlation passes with a warning.
	returns := map[string][]float64{
		"held": {0.01, -0.02, 0.03, -0.01, 0.02},
		"C":    {0.01, -0.02, 0.03, -0.01, 0.02},
	}
	ok, warnings = m.ValidateTrade(TradeRequest{
		Symbol:         "C",
		Action:         domain.ActionBuy,
		ProposedWeight: 0.1,
		Date:           day(2024, 1, 2),
		Returns:        returns,
		Held:           []string{"held"},
	})
	assert.True(t, ok)
	assert.NotEmpty(t, warnings)
}

func TestValidateTrade_SellBlockedByDrawdownBreaker(t *testing.T) {
	m := newTestManager(Config{PositionCap: 0.25, CooldownDays: 5, MaxDrawdownThreshold: -0.15})

	ok, _ := m.ValidateTrade(TradeRequest{
		Symbol:    "A",
		Action:    domain.ActionSell,
		Date:      day(2024, 1, 2),
		NAVSeries: []float64{100, 99, 98},
	})
	assert.True(t, ok)

	ok, warnings := m.ValidateTrade(TradeRequest{
		Symbol:    "A",
		Action:    domain.ActionSell,
		Date:      day(2024, 1, 2),
		NAVSeries: []float64{100, 70, 75},
	})
	assert.False(t, ok)
	assert.NotEmpty(t, warnings)
}
