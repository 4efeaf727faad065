package eval

import (
	"math"

	"github.com/park285/primordia/internal/domain"
)

// Fixed evaluation constants. Changing any of them changes every score.
const (
	materialWeight = 0.4
	vpWeight       = 0.6

	materialFactorThreshold = 0.1
	vpFactorThreshold       = 5

	winProbabilitySlope = 3.0

	baseConfidence    = 0.3
	confidencePerTurn = 0.1
	maxConfidence     = 0.9
)

// Key factor phrases shared with move recommendations.
const (
	FactorP1Material = "Player 1 has more material"
	FactorP2Material = "Player 2 has more material"
	FactorP1VP       = "Player 1 leads on VP"
	FactorP2VP       = "Player 2 leads on VP"
)

// Evaluator reduces a game state to a position evaluation.
type Evaluator interface {
	Evaluate(state *domain.GameState) PositionEvaluation
}

// HeuristicEvaluator scores material and victory points. It holds no state
// and is safe for concurrent use.
type HeuristicEvaluator struct{}

func NewHeuristicEvaluator() *HeuristicEvaluator { return &HeuristicEvaluator{} }

// Evaluate never fails. A nil state evaluates like an empty turn-1 game.
func (h *HeuristicEvaluator) Evaluate(state *domain.GameState) PositionEvaluation {
	if state == nil {
		state = &domain.GameState{TurnNumber: 1}
	}
	factors := make([]string, 0, 2)

	material := MaterialScore(state)
	if math.Abs(material) > materialFactorThreshold {
		if material > 0 {
			factors = append(factors, FactorP1Material)
		} else {
			factors = append(factors, FactorP2Material)
		}
	}

	vp := VPScore(state)
	vpDiff := state.Player1VP - state.Player2VP
	if absInt(vpDiff) >= vpFactorThreshold {
		if vpDiff > 0 {
			factors = append(factors, FactorP1VP)
		} else {
			factors = append(factors, FactorP2VP)
		}
	}

	advantage := clamp(material*materialWeight+vp*vpWeight, -1.0, 1.0)

	return PositionEvaluation{
		PlayerAdvantage: advantage,
		WinProbability:  WinProbability(advantage),
		KeyFactors:      factors,
		Confidence:      Confidence(state.TurnNumber),
		MaterialScore:   material,
		PositionScore:   0.0,
		TempoScore:      0.0,
		VPScore:         vp,
	}
}

// MaterialScore compares living points: (p1-p2)/(p1+p2), 0 when nobody has any.
func MaterialScore(state *domain.GameState) float64 {
	p1 := domain.RosterPoints(state.Player1Units)
	p2 := domain.RosterPoints(state.Player2Units)
	total := p1 + p2
	if total == 0 {
		return 0.0
	}
	return float64(p1-p2) / float64(total)
}

// VPScore is the victory point difference over the total, with the total
// floored at 1.
func VPScore(state *domain.GameState) float64 {
	diff := state.Player1VP - state.Player2VP
	maxVP := state.Player1VP + state.Player2VP
	if maxVP < 1 {
		maxVP = 1
	}
	return float64(diff) / float64(maxVP)
}

// WinProbability maps an advantage onto (0, 1) with a logistic curve.
func WinProbability(advantage float64) float64 {
	return 1.0 / (1.0 + math.Exp(-advantage*winProbabilitySlope))
}

// Confidence grows with game progress only and saturates at 0.9.
// It ignores how lopsided the score is.
func Confidence(turn int) float64 {
	return clamp(baseConfidence+float64(turn)*confidencePerTurn, 0, maxConfidence)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
