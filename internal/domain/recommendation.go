package domain

import "strings"

// MoveRecommendation is the output shape of a move recommender. Nothing in
// this module produces one yet; KeyFactors reuse the evaluator's vocabulary.
type MoveRecommendation struct {
	Move Move `json:"move"`

	// Score is unbounded; higher is better.
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`

	Reasoning  string   `json:"reasoning"`
	KeyFactors []string `json:"key_factors"`

	AlternativesCount int `json:"alternatives_count"`
}

func NewMoveRecommendation(m Move, score, confidence float64, reasoning string, keyFactors []string, alternatives int) (MoveRecommendation, error) {
	rec := MoveRecommendation{
		Move:              m.clone(),
		Score:             score,
		Confidence:        confidence,
		Reasoning:         strings.TrimSpace(reasoning),
		KeyFactors:        append([]string{}, keyFactors...),
		AlternativesCount: alternatives,
	}
	if err := rec.Validate(); err != nil {
		return MoveRecommendation{}, err
	}
	return rec, nil
}

func (r MoveRecommendation) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return invalidField("recommendation.confidence", r.Confidence, "must be within [0, 1]")
	}
	if r.AlternativesCount < 0 {
		return invalidField("recommendation.alternatives_count", r.AlternativesCount, "must be non-negative")
	}
	return r.Move.Validate()
}
