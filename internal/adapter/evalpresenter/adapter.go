package evalpresenter

import (
	"context"
	"errors"
	"sort"

	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/encoding"
	"github.com/park285/primordia/internal/eval"
	"github.com/park285/primordia/internal/openingbook"
	"github.com/park285/primordia/internal/scenario"
	"github.com/park285/primordia/internal/service/analysis"
	"github.com/park285/primordia/pkg/evaldto"
)

func ToDTOEvaluation(ev eval.PositionEvaluation) evaldto.Evaluation {
	factors := make([]evaldto.Factor, 0, 2)
	for _, f := range ev.Factors() {
		factors = append(factors, evaldto.Factor{
			Name:      string(f.Factor),
			Score:     f.Score,
			Weight:    f.Weight,
			Reasoning: f.Reasoning,
		})
	}
	return evaldto.Evaluation{
		PlayerAdvantage: ev.PlayerAdvantage,
		WinProbability:  ev.WinProbability,
		Confidence:      ev.Confidence,
		KeyFactors:      append([]string{}, ev.KeyFactors...),
		MaterialScore:   ev.MaterialScore,
		PositionScore:   ev.PositionScore,
		TempoScore:      ev.TempoScore,
		VPScore:         ev.VPScore,
		Band:            ev.Band(),
		Explanation:     ev.Explain(),
		Factors:         factors,
		Winning:         ev.IsWinning(0),
		Losing:          ev.IsLosing(0),
	}
}

func ToDTOEncoded(stateID string, enc *encoding.Encoder, e encoding.EncodedState) evaldto.EncodeResponse {
	return evaldto.EncodeResponse{
		StateID:            stateID,
		Global:             e.Global,
		Player1Units:       e.Player1Units,
		Player2Units:       e.Player2Units,
		Player1Mask:        e.Player1Mask,
		Player2Mask:        e.Player2Mask,
		TotalDim:           enc.TotalDim(),
		FeatureNames:       encoding.FeatureNames(),
		GlobalFeatureNames: encoding.GlobalFeatureNames(),
	}
}

func ToDTOGame(g openingbook.HistoricalGameResult) evaldto.HistoricalGame {
	return evaldto.HistoricalGame{
		ID:              g.ID,
		Player1Faction:  g.Player1Faction,
		Player2Faction:  g.Player2Faction,
		Player1ListHash: g.Player1ListHash,
		Player2ListHash: g.Player2ListHash,
		Winner:          g.Winner,
		Player1VP:       g.Player1VP,
		Player2VP:       g.Player2VP,
		TurnCount:       g.TurnCount,
		GameDate:        g.GameDate,
		Source:          g.Source,
	}
}

func ToDTOHistory(games []openingbook.HistoricalGame) []evaldto.HistoricalGame {
	out := make([]evaldto.HistoricalGame, 0, len(games))
	for _, g := range games {
		d := ToDTOGame(g.HistoricalGameResult)
		d.SimilarityScore = g.SimilarityScore
		out = append(out, d)
	}
	return out
}

func ToDTOStats(s *openingbook.FactionStatistics) *evaldto.MatchupStats {
	if s == nil {
		return nil
	}
	return &evaldto.MatchupStats{
		Faction:       s.Faction,
		Opponent:      s.Opponent,
		Games:         s.Games,
		Wins:          s.Wins,
		Losses:        s.Losses,
		WinRate:       s.WinRate(),
		AvgVPScored:   s.AvgVPScored,
		AvgVPConceded: s.AvgVPConceded,
	}
}

func ToDTOBookSetup(r *openingbook.DeploymentRecommendation) evaldto.BookSetup {
	if r == nil {
		return evaldto.BookSetup{Zones: map[string]string{}}
	}
	zones := make(map[string]string, len(r.Zones))
	for k, v := range r.Zones {
		zones[k] = v
	}
	return evaldto.BookSetup{
		Name:         r.Name,
		Description:  r.Description,
		Zones:        zones,
		Confidence:   r.Confidence,
		BasedOnGames: r.BasedOnGames,
		WinRate:      r.WinRate,
		ListGames:    r.ListGames,
		ListWinRate:  r.ListWinRate,
	}
}

func FromDTODeployment(req evaldto.DeploymentRequest) openingbook.DeploymentPattern {
	zones := make(map[string]string, len(req.Zones))
	for k, v := range req.Zones {
		zones[k] = v
	}
	return openingbook.DeploymentPattern{
		ID:              req.ID,
		PlayerFaction:   req.PlayerFaction,
		OpponentFaction: req.OpponentFaction,
		Name:            req.Name,
		Zones:           zones,
		Description:     req.Description,
		GamesUsed:       req.GamesUsed,
		Wins:            req.Wins,
	}
}

// ToDomainError classifies service errors for callers outside the process.
// Unclassified errors become internal errors without their detail.
func ToDomainError(err error) evaldto.DomainError {
	var (
		ve  *domain.ValidationError
		ise *domain.InvalidStateError
		de  evaldto.DomainError
	)
	switch {
	case err == nil:
		return evaldto.DomainError{}
	case errors.As(err, &de):
		return de
	case errors.As(err, &ve):
		return evaldto.DomainError{Code: evaldto.CodeValidation, Message: ve.Error()}
	case errors.As(err, &ise):
		return evaldto.DomainError{Code: evaldto.CodeInvalidState, Message: ise.Error()}
	case errors.Is(err, analysis.ErrSnapshotNotFound):
		return evaldto.DomainError{Code: evaldto.CodeNotFound, Message: "game state snapshot"}
	case errors.Is(err, analysis.ErrSnapshotsDisabled):
		return evaldto.DomainError{Code: evaldto.CodeUnavailable, Message: "state snapshots"}
	case errors.Is(err, analysis.ErrNilState), errors.Is(err, scenario.ErrEmpty):
		return evaldto.DomainError{Code: evaldto.CodeBadRequest, Message: "game state is missing"}
	case errors.Is(err, scenario.ErrMalformed):
		return evaldto.DomainError{Code: evaldto.CodeBadRequest, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return evaldto.DomainError{Code: evaldto.CodeUnavailable, Message: "request deadline", Retryable: true}
	default:
		return evaldto.DomainError{Code: evaldto.CodeInternal, Message: "internal error", Retryable: true}
	}
}

type zoneLine struct {
	Unit string
	Zone string
}

func sortedZones(zones map[string]string) []zoneLine {
	out := make([]zoneLine, 0, len(zones))
	for unit, zone := range zones {
		out = append(out, zoneLine{Unit: unit, Zone: zone})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}
