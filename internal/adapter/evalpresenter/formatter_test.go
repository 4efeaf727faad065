package evalpresenter

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/eval"
	"github.com/park285/primordia/internal/msgcat"
	"github.com/park285/primordia/internal/openingbook"
	"github.com/park285/primordia/internal/scenario"
	"github.com/park285/primordia/internal/service/analysis"
	"github.com/park285/primordia/pkg/evaldto"
	"github.com/stretchr/testify/require"
)

func newTestFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	require.NoError(t, err)
	return NewFormatter(cat)
}

func TestEvaluationReport(t *testing.T) {
	f := newTestFormatter(t)
	s, err := domain.NewGameState(
		[]*domain.Unit{domain.NewUnit("A", "Space Marines", 10, 5, 200)},
		[]*domain.Unit{domain.NewUnit("B", "Orks", 10, 5, 50)},
		domain.WithTurn(2, domain.PhaseShooting, 1),
		domain.WithMission("Take and Hold", "Dawn of War"),
	)
	require.NoError(t, err)
	ev := ToDTOEvaluation(eval.NewHeuristicEvaluator().Evaluate(s))

	text, err := f.Evaluation(s, ev)
	require.NoError(t, err)
	require.Contains(t, text, "Turn 2 (shooting), player 1 to act. Take and Hold / Dawn of War")
	require.Contains(t, text, "Position: slight advantage player 1 (+0.24)")
	require.Contains(t, text, "Key factors: Player 1 has more material")
	require.Contains(t, text, fmt.Sprintf("Win probability: %.0f%%", ev.WinProbability*100))
}

func TestEvaluationVerdict(t *testing.T) {
	f := newTestFormatter(t)
	cases := []struct {
		name            string
		vp1, vp2        int
		winning, losing bool
		line            string
	}{
		{"player 1 ahead", 10, 0, true, false, "Player 1 is winning."},
		{"player 2 ahead", 0, 10, false, true, "Player 1 is losing."},
		{"close game", 11, 9, false, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := domain.NewGameState(nil, nil, domain.WithVictoryPoints(tc.vp1, tc.vp2))
			require.NoError(t, err)
			ev := ToDTOEvaluation(eval.NewHeuristicEvaluator().Evaluate(s))
			require.Equal(t, tc.winning, ev.Winning)
			require.Equal(t, tc.losing, ev.Losing)

			text, err := f.Evaluation(s, ev)
			require.NoError(t, err)
			if tc.line == "" {
				require.NotContains(t, text, "Player 1 is")
			} else {
				require.True(t, strings.HasSuffix(text, tc.line), text)
			}
		})
	}
}

func TestEvaluationReportWithoutFactors(t *testing.T) {
	f := newTestFormatter(t)
	ev := ToDTOEvaluation(eval.NewHeuristicEvaluator().Evaluate(nil))
	text, err := f.Evaluation(nil, ev)
	require.NoError(t, err)
	require.Contains(t, text, "Key factors: none")
	require.False(t, strings.HasPrefix(text, "Turn"))
	require.Len(t, ev.Factors, 2)
}

func TestMatchupStatsReport(t *testing.T) {
	f := newTestFormatter(t)
	text, err := f.MatchupStats("Orks", "Tau", nil)
	require.NoError(t, err)
	require.Equal(t, "No games recorded for Orks vs Tau.", text)

	stats := ToDTOStats(&openingbook.FactionStatistics{
		Faction: "Orks", Opponent: "Tau", Games: 4, Wins: 3, Losses: 1, AvgVPScored: 71.5, AvgVPConceded: 60,
	})
	text, err = f.MatchupStats("Orks", "Tau", stats)
	require.NoError(t, err)
	require.Equal(t, "Orks vs Tau: 4 games, 3W-1L (75%). Avg VP 71.50 scored, 60.00 conceded.", text)
}

func TestBookSetupReportSortsZones(t *testing.T) {
	f := newTestFormatter(t)
	setup := ToDTOBookSetup(&openingbook.DeploymentRecommendation{
		Name:         "Refused Flank",
		Description:  "Weight the left",
		Zones:        map[string]string{"Redemptor": "centre", "Intercessors": "left"},
		Confidence:   0.5,
		BasedOnGames: 4,
		WinRate:      0.75,
	})
	text, err := f.BookSetup(setup)
	require.NoError(t, err)
	require.Contains(t, text, "Deployment: Refused Flank")
	require.Contains(t, text, "Confidence 50% from 4 games, win rate 75%")
	require.NotContains(t, text, "This list")
	require.Less(t, strings.Index(text, "- Intercessors: left"), strings.Index(text, "- Redemptor: centre"))

	setup.ListGames, setup.ListWinRate = 2, 0.5
	text, err = f.BookSetup(setup)
	require.NoError(t, err)
	require.Contains(t, text, "This list: 2 games, win rate 50%")
}

func TestHistoryReport(t *testing.T) {
	f := newTestFormatter(t)
	text, err := f.History(nil)
	require.NoError(t, err)
	require.Equal(t, "No historical games found.", text)

	games := ToDTOHistory([]openingbook.HistoricalGame{
		{HistoricalGameResult: openingbook.HistoricalGameResult{ID: "g1", Player1Faction: "Orks", Player2Faction: "Tau", Winner: 2, Player1VP: 40, Player2VP: 75, GameDate: time.Now()}, SimilarityScore: 1},
		{HistoricalGameResult: openingbook.HistoricalGameResult{ID: "g2", Player1Faction: "Orks", Player2Faction: "Tau", Winner: 1, Player1VP: 80, Player2VP: 30}, SimilarityScore: 0.5},
	})
	text, err = f.History(games)
	require.NoError(t, err)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "g1: Orks vs Tau, player 2 won 40-75 (similarity 1.00)", lines[0])
}

func TestErrorMessages(t *testing.T) {
	f := newTestFormatter(t)
	cases := []struct {
		err  error
		code string
		want string
	}{
		{&domain.ValidationError{Field: "turn", Value: -1, Reason: "must be at least 1"}, evaldto.CodeValidation, "Invalid input: invalid turn -1: must be at least 1"},
		{fmt.Errorf("load: %w", analysis.ErrSnapshotNotFound), evaldto.CodeNotFound, "game state snapshot was not found."},
		{analysis.ErrSnapshotsDisabled, evaldto.CodeUnavailable, "Temporarily unavailable: state snapshots."},
		{fmt.Errorf("%w: bad indent", scenario.ErrMalformed), evaldto.CodeBadRequest, "Malformed request: malformed scenario: bad indent"},
		{errors.New("dial tcp: refused"), evaldto.CodeInternal, "Something went wrong. Please try again."},
	}
	for _, tc := range cases {
		de := ToDomainError(tc.err)
		require.Equal(t, tc.code, de.Code)
		require.Equal(t, tc.want, f.Error(de))
	}
	require.Equal(t, "Something went wrong. Please try again.", f.Error(evaldto.DomainError{Code: "teapot"}))
}

func TestPresenterOrder(t *testing.T) {
	var got []string
	p := NewPresenter(
		func(m string) error { got = append(got, "text:"+m); return nil },
		func(b []byte) error { got = append(got, fmt.Sprintf("png:%d", len(b))); return nil },
	)
	require.NoError(t, p.Report("hello", []byte{1, 2, 3}))
	require.NoError(t, p.Report("  ", nil))
	require.Equal(t, []string{"text:hello", "png:3"}, got)

	var nilPresenter *Presenter
	require.NoError(t, nilPresenter.Report("x", nil))
}
