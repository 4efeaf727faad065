package openingbook

import (
	"strings"
	"time"

	"github.com/park285/primordia/internal/domain"
)

const (
	defaultTurnCount = 5
	defaultSource    = "user"
	defaultLimit     = 10
)

// HistoricalGameResult is one indexed game. Factions are stored from
// player 1's point of view.
type HistoricalGameResult struct {
	ID              string    `json:"id"`
	Player1Faction  string    `json:"player1_faction"`
	Player2Faction  string    `json:"player2_faction"`
	Player1ListHash string    `json:"player1_list_hash"`
	Player2ListHash string    `json:"player2_list_hash"`
	Winner          int       `json:"winner"`
	Player1VP       int       `json:"player1_vp"`
	Player2VP       int       `json:"player2_vp"`
	TurnCount       int       `json:"turn_count"`
	GameDate        time.Time `json:"game_date"`
	Source          string    `json:"source"`
}

func (g HistoricalGameResult) Player1Won() bool { return g.Winner == 1 }

// VPDifferential is positive when player 1 scored more.
func (g HistoricalGameResult) VPDifferential() int { return g.Player1VP - g.Player2VP }

// HistoricalGame pairs a stored game with how closely it matches a query.
type HistoricalGame struct {
	HistoricalGameResult
	SimilarityScore float64 `json:"similarity_score"`
}

// IndexGameParams is the input for Repository.IndexGame. Zero TurnCount,
// Source and GameDate take their defaults in Normalize.
type IndexGameParams struct {
	ID              string
	Player1Faction  string
	Player2Faction  string
	Player1ListHash string
	Player2ListHash string
	Winner          int
	Player1VP       int
	Player2VP       int
	TurnCount       int
	GameDate        time.Time
	Source          string
}

// Normalize validates the params and fills defaults.
func (p IndexGameParams) Normalize(now time.Time) (HistoricalGameResult, error) {
	g := HistoricalGameResult{
		ID:              strings.TrimSpace(p.ID),
		Player1Faction:  strings.TrimSpace(p.Player1Faction),
		Player2Faction:  strings.TrimSpace(p.Player2Faction),
		Player1ListHash: strings.TrimSpace(p.Player1ListHash),
		Player2ListHash: strings.TrimSpace(p.Player2ListHash),
		Winner:          p.Winner,
		Player1VP:       p.Player1VP,
		Player2VP:       p.Player2VP,
		TurnCount:       p.TurnCount,
		GameDate:        p.GameDate,
		Source:          strings.TrimSpace(p.Source),
	}
	if err := ValidateWinner(g.Winner); err != nil {
		return HistoricalGameResult{}, err
	}
	if g.ID == "" {
		return HistoricalGameResult{}, &domain.ValidationError{Field: "game.id", Value: p.ID, Reason: "must not be empty"}
	}
	if g.Player1Faction == "" || g.Player2Faction == "" {
		return HistoricalGameResult{}, &domain.ValidationError{Field: "game.faction", Value: p.Player1Faction + "/" + p.Player2Faction, Reason: "both factions are required"}
	}
	if g.TurnCount <= 0 {
		g.TurnCount = defaultTurnCount
	}
	if g.Source == "" {
		g.Source = defaultSource
	}
	if g.GameDate.IsZero() {
		g.GameDate = now
	}
	g.GameDate = g.GameDate.UTC()
	return g, nil
}

// ValidateWinner accepts only 1 or 2.
func ValidateWinner(winner int) error {
	if winner != 1 && winner != 2 {
		return &domain.ValidationError{Field: "winner", Value: winner, Reason: "must be 1 or 2"}
	}
	return nil
}

// FactionStatistics aggregates every game where Faction was player 1 and
// Opponent was player 2.
type FactionStatistics struct {
	Faction       string  `json:"faction"`
	Opponent      string  `json:"opponent"`
	Games         int     `json:"games"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	AvgVPScored   float64 `json:"avg_vp_scored"`
	AvgVPConceded float64 `json:"avg_vp_conceded"`
}

func (s FactionStatistics) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}

// DeploymentPattern is a named set of unit→zone assignments with its record.
type DeploymentPattern struct {
	ID              string            `json:"id"`
	PlayerFaction   string            `json:"player_faction"`
	OpponentFaction string            `json:"opponent_faction"`
	Name            string            `json:"name"`
	Zones           map[string]string `json:"deployment_zones"`
	Description     string            `json:"description"`
	GamesUsed       int               `json:"games_used"`
	Wins            int               `json:"wins"`
}

func (p DeploymentPattern) WinRate() float64 {
	if p.GamesUsed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.GamesUsed)
}

// Validate checks the fields the storage layer relies on.
func (p DeploymentPattern) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return &domain.ValidationError{Field: "pattern.id", Value: p.ID, Reason: "must not be empty"}
	case strings.TrimSpace(p.PlayerFaction) == "" || strings.TrimSpace(p.OpponentFaction) == "":
		return &domain.ValidationError{Field: "pattern.faction", Value: p.PlayerFaction + "/" + p.OpponentFaction, Reason: "both factions are required"}
	case strings.TrimSpace(p.Name) == "":
		return &domain.ValidationError{Field: "pattern.name", Value: p.Name, Reason: "must not be empty"}
	case p.GamesUsed < 0 || p.Wins < 0 || p.Wins > p.GamesUsed:
		return &domain.ValidationError{Field: "pattern.wins", Value: p.Wins, Reason: "wins must be within [0, games_used]"}
	}
	return nil
}

func (p DeploymentPattern) clone() DeploymentPattern {
	out := p
	out.Zones = make(map[string]string, len(p.Zones))
	for k, v := range p.Zones {
		out.Zones[k] = v
	}
	return out
}

// DeploymentRecommendation is what the book suggests for a matchup.
// ListGames and ListWinRate cover only games played with the caller's exact
// list.
type DeploymentRecommendation struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Zones        map[string]string `json:"deployment_zones"`
	Confidence   float64           `json:"confidence"`
	BasedOnGames int               `json:"based_on_games"`
	WinRate      float64           `json:"win_rate"`
	ListGames    int               `json:"list_games"`
	ListWinRate  float64           `json:"list_win_rate"`
}

// HistoryQuery selects games for GetHistoricalGames. Opponent and ListHash
// are optional.
type HistoryQuery struct {
	Faction  string
	Opponent string
	ListHash string
	Limit    int
}
