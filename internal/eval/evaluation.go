package eval

import (
	"fmt"
	"math"
	"strings"
)

// EvaluationFactor names one dimension of a position assessment.
type EvaluationFactor string

const (
	FactorBoardControl     EvaluationFactor = "board_control"
	FactorObjectiveControl EvaluationFactor = "objective_control"
	FactorUnitPreservation EvaluationFactor = "unit_preservation"
	FactorThreatProjection EvaluationFactor = "threat_projection"
	FactorMobility         EvaluationFactor = "mobility"
	FactorSynergy          EvaluationFactor = "synergy"
)

const (
	defaultWinningThreshold = 0.3
	noFactorsPlaceholder    = "no decisive factors"
)

// FactorScore is one weighted term of the combined advantage.
type FactorScore struct {
	Factor    EvaluationFactor `json:"factor"`
	Score     float64          `json:"score"`
	Weight    float64          `json:"weight"`
	Reasoning string           `json:"reasoning,omitempty"`
}

// PositionEvaluation is the result of evaluating one GameState. Positive
// scores favour player 1. PositionScore and TempoScore are reserved and are
// always 0 in this version.
type PositionEvaluation struct {
	PlayerAdvantage float64  `json:"player_advantage"`
	WinProbability  float64  `json:"win_probability"`
	KeyFactors      []string `json:"key_factors"`
	Confidence      float64  `json:"confidence"`

	MaterialScore float64 `json:"material_score"`
	PositionScore float64 `json:"position_score"`
	TempoScore    float64 `json:"tempo_score"`
	VPScore       float64 `json:"vp_score"`
}

// NewPositionEvaluation builds an evaluation from externally computed values,
// rejecting anything out of range instead of clamping it.
func NewPositionEvaluation(advantage, winProbability, confidence float64, keyFactors []string) (PositionEvaluation, error) {
	e := PositionEvaluation{
		PlayerAdvantage: advantage,
		WinProbability:  winProbability,
		KeyFactors:      append([]string{}, keyFactors...),
		Confidence:      confidence,
	}
	if err := e.Validate(); err != nil {
		return PositionEvaluation{}, err
	}
	return e, nil
}

// Validate reports the first field outside its documented range.
func (e PositionEvaluation) Validate() error {
	checks := []struct {
		field    string
		v        float64
		min, max float64
	}{
		{"player_advantage", e.PlayerAdvantage, -1, 1},
		{"win_probability", e.WinProbability, 0, 1},
		{"confidence", e.Confidence, 0, 1},
		{"material_score", e.MaterialScore, -1, 1},
		{"position_score", e.PositionScore, -1, 1},
		{"tempo_score", e.TempoScore, -1, 1},
		{"vp_score", e.VPScore, -1, 1},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || c.v < c.min || c.v > c.max {
			return rangeError(c.field, c.v, c.min, c.max)
		}
	}
	return nil
}

// IsWinning reports whether player 1 is ahead by at least threshold.
// A non-positive threshold selects the default of 0.3.
func (e PositionEvaluation) IsWinning(threshold float64) bool {
	if threshold <= 0 {
		threshold = defaultWinningThreshold
	}
	return e.PlayerAdvantage >= threshold
}

// IsLosing reports whether player 1 is behind by at least threshold.
func (e PositionEvaluation) IsLosing(threshold float64) bool {
	if threshold <= 0 {
		threshold = defaultWinningThreshold
	}
	return e.PlayerAdvantage <= -threshold
}

// Factors breaks the advantage into its weighted terms.
func (e PositionEvaluation) Factors() []FactorScore {
	return []FactorScore{
		{Factor: FactorUnitPreservation, Score: e.MaterialScore, Weight: materialWeight, Reasoning: "living points ratio"},
		{Factor: FactorObjectiveControl, Score: e.VPScore, Weight: vpWeight, Reasoning: "victory point share"},
	}
}

// Band returns the qualitative bucket for the advantage. Boundaries fall
// into the lower-magnitude band.
func (e PositionEvaluation) Band() string {
	a := e.PlayerAdvantage
	switch {
	case a > 0.3:
		return "significant advantage player 1"
	case a > 0.1:
		return "slight advantage player 1"
	case a < -0.3:
		return "significant advantage player 2"
	case a < -0.1:
		return "slight advantage player 2"
	default:
		return "roughly equal"
	}
}

// WinPercent formats the win probability as a rounded whole percentage.
func (e PositionEvaluation) WinPercent() string {
	return fmt.Sprintf("%.0f%%", e.WinProbability*100)
}

// Explain renders a one-line human summary.
func (e PositionEvaluation) Explain() string {
	factors := noFactorsPlaceholder
	if len(e.KeyFactors) > 0 {
		factors = strings.Join(e.KeyFactors, "; ")
	}
	return fmt.Sprintf("Position: %s. Key factors: %s. Win probability: %s", e.Band(), factors, e.WinPercent())
}
