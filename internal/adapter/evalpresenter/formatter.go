package evalpresenter

import (
	"fmt"
	"strings"

	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/msgcat"
	"github.com/park285/primordia/pkg/evaldto"
)

const internalErrorText = "Something went wrong. Please try again."

// Formatter renders DTOs into plain-text reports from the message catalogue.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

// Evaluation renders the state header followed by the evaluation block.
func (f *Formatter) Evaluation(state *domain.GameState, ev evaldto.Evaluation) (string, error) {
	var sb strings.Builder
	if state != nil {
		header, err := f.cat.Render("report.header", map[string]any{
			"Turn":       state.TurnNumber,
			"Phase":      strings.ToLower(state.CurrentPhase.String()),
			"Active":     state.ActivePlayer,
			"Mission":    state.Mission,
			"Deployment": state.DeploymentType,
		})
		if err != nil {
			return "", err
		}
		sb.WriteString(header)
		sb.WriteString("\n")
	}
	body, err := f.cat.Render("report.evaluation", map[string]any{
		"Band":       ev.Band,
		"Advantage":  ev.PlayerAdvantage,
		"WinPercent": fmt.Sprintf("%.0f%%", ev.WinProbability*100),
		"Confidence": ev.Confidence,
		"Material":   ev.MaterialScore,
		"VP":         ev.VPScore,
		"Factors":    ev.KeyFactors,
		"Winning":    ev.Winning,
		"Losing":     ev.Losing,
	})
	if err != nil {
		return "", err
	}
	sb.WriteString(body)
	return sb.String(), nil
}

// MatchupStats renders the record, or the empty-matchup line when stats is nil.
func (f *Formatter) MatchupStats(faction, opponent string, stats *evaldto.MatchupStats) (string, error) {
	if stats == nil || stats.Games == 0 {
		return f.cat.Render("report.matchup_empty", map[string]any{"Faction": faction, "Opponent": opponent})
	}
	return f.cat.Render("report.matchup_stats", stats)
}

func (f *Formatter) BookSetup(setup evaldto.BookSetup) (string, error) {
	return f.cat.Render("report.book_setup", map[string]any{
		"Name":         setup.Name,
		"Description":  setup.Description,
		"Confidence":   setup.Confidence,
		"BasedOnGames": setup.BasedOnGames,
		"WinRate":      setup.WinRate,
		"ListGames":    setup.ListGames,
		"ListWinRate":  setup.ListWinRate,
		"Zones":        sortedZones(setup.Zones),
	})
}

// History renders one line per game.
func (f *Formatter) History(games []evaldto.HistoricalGame) (string, error) {
	if len(games) == 0 {
		return f.cat.Render("report.history_empty", nil)
	}
	lines := make([]string, 0, len(games))
	for _, g := range games {
		line, err := f.cat.Render("report.history_line", g)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (f *Formatter) Recorded(game evaldto.HistoricalGame) (string, error) {
	return f.cat.Render("report.recorded", game)
}

// Error never fails; a missing template degrades to a fixed message.
func (f *Formatter) Error(de evaldto.DomainError) string {
	key := "error." + de.Code
	if de.Code == "" || !f.cat.Has(key) {
		key = "error." + evaldto.CodeInternal
	}
	text, err := f.cat.Render(key, map[string]any{"Detail": de.Message})
	if err != nil {
		return internalErrorText
	}
	return text
}
