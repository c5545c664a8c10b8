package signal

import (
	"github.com/rs/zerolog"

	"github.com/quantkr/backtester/internal/domain"
)

// CombinedSignal is the weighted-vote outcome for one symbol on one date
type CombinedSignal struct {
	Action     domain.Action
	Confidence float64
	Components map[string]Vote
	Scores     map[domain.Action]float64
}

// Generator combines the closed set of sub-signals through weighted
// voting. Weights follow sub-signal order and sum to 1.
type Generator struct {
	signals []SubSignal
	weights []float64
	log     zerolog.Logger
}

// NewGenerator creates a generator with the standard sub-signal set and
// the 0.5/0.3/0.2 momentum/trend/mean-reversion weighting
func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{
		signals: []SubSignal{
			newMomentumSignal(),
			newTrendSignal(),
			newMeanReversionSignal(),
		},
		weights: []float64{0.5, 0.3, 0.2},
		log:     log.With().Str("component", "signal").Logger(),
	}
}

// MinBars is the shortest window that lets every sub-signal vote
func (g *Generator) MinBars() int {
	min := 0
	for _, s := range g.signals {
		if s.MinBars() > min {
			min = s.MinBars()
		}
	}
	return min
}

// Combined runs every sub-signal on the window and tallies weighted votes.
// A directional vote contributes weight × score to its direction; an
// abstaining (HOLD) vote contributes its full weight to HOLD. The winner
// is the highest tally; exact ties resolve in BUY, SELL, HOLD order.
func (g *Generator) Combined(w Window) CombinedSignal {
	scores := map[domain.Action]float64{
		domain.ActionBuy:  0,
		domain.ActionSell: 0,
		domain.ActionHold: 0,
	}
	components := make(map[string]Vote, len(g.signals))

	for i, s := range g.signals {
		vote := s.Generate(w)
		components[s.Name()] = vote

		if vote.Action == domain.ActionHold {
			scores[domain.ActionHold] += g.weights[i]
		} else {
			scores[vote.Action] += g.weights[i] * vote.Score
		}
	}

	winner := domain.ActionBuy
	best := scores[domain.ActionBuy]
	for _, action := range []domain.Action{domain.ActionSell, domain.ActionHold} {
		if scores[action] > best {
			winner = action
			best = scores[action]
		}
	}

	return CombinedSignal{
		Action:     winner,
		Confidence: best,
		Components: components,
		Scores:     scores,
	}
}
