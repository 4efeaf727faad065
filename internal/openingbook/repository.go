package openingbook

import (
	"context"
	"errors"
)

var ErrNilPattern = errors.New("nil deployment pattern")

// Repository stores indexed games and deployment patterns. Query methods
// return games newest first; a non-positive limit means 10.
type Repository interface {
	IndexGame(ctx context.Context, params IndexGameParams) (HistoricalGameResult, error)
	QueryMatchup(ctx context.Context, faction, opponent string, limit int) ([]HistoricalGameResult, error)
	QueryFaction(ctx context.Context, faction string, limit int) ([]HistoricalGameResult, error)
	// GetMatchupStats returns nil when the matchup has no games.
	GetMatchupStats(ctx context.Context, faction, opponent string) (*FactionStatistics, error)
	// ListRecord counts the matchup's games played by one player-1 list hash.
	ListRecord(ctx context.Context, faction, opponent, listHash string) (games, wins int, err error)
	UpsertDeploymentPattern(ctx context.Context, pattern *DeploymentPattern) error
	// TopDeploymentPattern returns nil when no pattern is stored.
	TopDeploymentPattern(ctx context.Context, faction, opponent string) (*DeploymentPattern, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
