package evaldto

import "time"

// RecordGameRequest stores the result of a snapshotted game.
type RecordGameRequest struct {
	StateID string `json:"state_id"`
	Winner  int    `json:"winner"`
}

type HistoricalGame struct {
	ID              string    `json:"id"`
	Player1Faction  string    `json:"player1_faction"`
	Player2Faction  string    `json:"player2_faction"`
	Player1ListHash string    `json:"player1_list_hash,omitempty"`
	Player2ListHash string    `json:"player2_list_hash,omitempty"`
	Winner          int       `json:"winner"`
	Player1VP       int       `json:"player1_vp"`
	Player2VP       int       `json:"player2_vp"`
	TurnCount       int       `json:"turn_count"`
	GameDate        time.Time `json:"game_date"`
	Source          string    `json:"source"`
	SimilarityScore float64   `json:"similarity_score,omitempty"`
}

type RecordGameResponse struct {
	Game   HistoricalGame `json:"game"`
	Report string         `json:"report,omitempty"`
}

type MatchupStats struct {
	Faction       string  `json:"faction"`
	Opponent      string  `json:"opponent"`
	Games         int     `json:"games"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	AvgVPScored   float64 `json:"avg_vp_scored"`
	AvgVPConceded float64 `json:"avg_vp_conceded"`
}

// MatchupStatsResponse leaves Stats nil when no games are indexed.
type MatchupStatsResponse struct {
	Stats  *MatchupStats `json:"stats"`
	Report string        `json:"report,omitempty"`
}

type HistoryResponse struct {
	Games  []HistoricalGame `json:"games"`
	Report string           `json:"report,omitempty"`
}

type BookSetup struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Zones        map[string]string `json:"deployment_zones"`
	Confidence   float64           `json:"confidence"`
	BasedOnGames int               `json:"based_on_games"`
	WinRate      float64           `json:"win_rate"`
	ListGames    int               `json:"list_games,omitempty"`
	ListWinRate  float64           `json:"list_win_rate,omitempty"`
}

type BookSetupResponse struct {
	Setup  BookSetup `json:"setup"`
	Report string    `json:"report,omitempty"`
}

// DeploymentRequest stores or replaces a deployment pattern. An empty ID
// derives one from the factions and the name.
type DeploymentRequest struct {
	ID              string            `json:"id,omitempty"`
	PlayerFaction   string            `json:"player_faction"`
	OpponentFaction string            `json:"opponent_faction"`
	Name            string            `json:"name"`
	Zones           map[string]string `json:"deployment_zones"`
	Description     string            `json:"description"`
	GamesUsed       int               `json:"games_used"`
	Wins            int               `json:"wins"`
}
