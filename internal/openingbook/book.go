package openingbook

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/park285/primordia/internal/domain"
	"go.uber.org/zap"
)

var ErrNilState = errors.New("nil game state")

const (
	standardDeploymentName = "Standard Deployment"
	fallbackConfidence     = 0.3
	fallbackWinRate        = 0.5
	confidencePerGame      = 0.05
	maxBookConfidence      = 0.9

	sameListSimilarity    = 1.0
	sameFactionSimilarity = 0.5
)

// Book answers deployment and history questions from the repository,
// reading matchup statistics through the cache.
type Book struct {
	repo   Repository
	cache  *StatsCache
	logger *zap.Logger
	now    func() time.Time
}

// NewBook wires a book. cache may be nil.
func NewBook(repo Repository, cache *StatsCache, logger *zap.Logger) (*Book, error) {
	if repo == nil {
		return nil, fmt.Errorf("opening book repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{repo: repo, cache: cache, logger: logger, now: time.Now}, nil
}

// MatchupStats reads through the cache. It returns nil when the matchup has
// never been played.
func (b *Book) MatchupStats(ctx context.Context, faction, opponent string) (*FactionStatistics, error) {
	if stats, ok, err := b.cache.Get(ctx, faction, opponent); err != nil {
		b.logger.Warn("matchup stats cache read failed", zap.Error(err), zap.String("faction", faction), zap.String("opponent", opponent))
	} else if ok {
		return stats, nil
	}

	stats, err := b.repo.GetMatchupStats(ctx, faction, opponent)
	if err != nil {
		return nil, err
	}
	if err := b.cache.Set(ctx, stats); err != nil {
		b.logger.Warn("matchup stats cache write failed", zap.Error(err))
	}
	return stats, nil
}

// GetBookSetup recommends a deployment. The best stored pattern wins; with no
// pattern the matchup record backs a standard deployment; with no games at
// all the generic standard deployment is returned.
func (b *Book) GetBookSetup(ctx context.Context, faction, listHash, opponent string) (*DeploymentRecommendation, error) {
	faction, opponent = strings.TrimSpace(faction), strings.TrimSpace(opponent)

	rec := &DeploymentRecommendation{
		Name:        standardDeploymentName,
		Description: fmt.Sprintf("Generic deployment for %s vs %s", faction, opponent),
		Zones:       map[string]string{},
		Confidence:  fallbackConfidence,
		WinRate:     fallbackWinRate,
	}

	stats, err := b.MatchupStats(ctx, faction, opponent)
	if err != nil {
		return nil, fmt.Errorf("matchup stats: %w", err)
	}
	if stats != nil && stats.Games > 0 {
		rec.BasedOnGames = stats.Games
		rec.WinRate = stats.WinRate()
		rec.Confidence = sampleConfidence(stats.Games)
	}

	pattern, err := b.repo.TopDeploymentPattern(ctx, faction, opponent)
	if err != nil {
		return nil, fmt.Errorf("top deployment pattern: %w", err)
	}
	if pattern != nil && pattern.GamesUsed > 0 {
		rec.Name = pattern.Name
		if pattern.Description != "" {
			rec.Description = pattern.Description
		}
		rec.Zones = pattern.clone().Zones
		rec.BasedOnGames = pattern.GamesUsed
		rec.WinRate = pattern.WinRate()
		rec.Confidence = sampleConfidence(pattern.GamesUsed)
	}

	if listHash = strings.TrimSpace(listHash); listHash != "" {
		games, wins, err := b.repo.ListRecord(ctx, faction, opponent, listHash)
		if err != nil {
			return nil, fmt.Errorf("list record: %w", err)
		}
		rec.ListGames = games
		if games > 0 {
			rec.ListWinRate = float64(wins) / float64(rec.ListGames)
		}
	}
	return rec, nil
}

// GetHistoricalGames returns games for the faction, optionally narrowed to an
// opponent, ranked by similarity (an identical list hash scores 1.0, anything
// else 0.5) and then by recency.
func (b *Book) GetHistoricalGames(ctx context.Context, q HistoryQuery) ([]HistoricalGame, error) {
	if strings.TrimSpace(q.Faction) == "" {
		return nil, &domain.ValidationError{Field: "faction", Value: q.Faction, Reason: "must not be empty"}
	}
	var (
		games []HistoricalGameResult
		err   error
	)
	if strings.TrimSpace(q.Opponent) != "" {
		games, err = b.repo.QueryMatchup(ctx, q.Faction, q.Opponent, q.Limit)
	} else {
		games, err = b.repo.QueryFaction(ctx, q.Faction, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query historical games: %w", err)
	}

	listHash := strings.TrimSpace(q.ListHash)
	out := make([]HistoricalGame, 0, len(games))
	for _, g := range games {
		score := sameFactionSimilarity
		if listHash != "" && g.Player1ListHash == listHash {
			score = sameListSimilarity
		}
		out = append(out, HistoricalGame{HistoricalGameResult: g, SimilarityScore: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SimilarityScore > out[j].SimilarityScore
	})
	return out, nil
}

// IndexGameState stores a finished game. Factions come from each roster's
// most common faction and list hashes from domain.RosterHash.
func (b *Book) IndexGameState(ctx context.Context, state *domain.GameState, winner int) (HistoricalGameResult, error) {
	if state == nil {
		return HistoricalGameResult{}, ErrNilState
	}
	if err := ValidateWinner(winner); err != nil {
		return HistoricalGameResult{}, err
	}
	params := IndexGameParams{
		ID:              state.ID.String(),
		Player1Faction:  domain.PrimaryFaction(state.Player1Units),
		Player2Faction:  domain.PrimaryFaction(state.Player2Units),
		Player1ListHash: domain.RosterHash(state.Player1Units),
		Player2ListHash: domain.RosterHash(state.Player2Units),
		Winner:          winner,
		Player1VP:       state.Player1VP,
		Player2VP:       state.Player2VP,
		TurnCount:       state.TurnNumber,
		GameDate:        b.now(),
	}
	return b.IndexGame(ctx, params)
}

// IndexGame stores a game and drops the cached stats for its matchup.
func (b *Book) IndexGame(ctx context.Context, params IndexGameParams) (HistoricalGameResult, error) {
	game, err := b.repo.IndexGame(ctx, params)
	if err != nil {
		return HistoricalGameResult{}, err
	}
	if err := b.cache.Invalidate(ctx, game.Player1Faction, game.Player2Faction); err != nil {
		b.logger.Warn("matchup stats cache invalidation failed", zap.Error(err), zap.String("game_id", game.ID))
	}
	b.logger.Info("historical game indexed",
		zap.String("game_id", game.ID),
		zap.String("faction", game.Player1Faction),
		zap.String("opponent", game.Player2Faction),
		zap.Int("winner", game.Winner),
	)
	return game, nil
}

// RecordDeployment stores or replaces a deployment pattern.
func (b *Book) RecordDeployment(ctx context.Context, pattern *DeploymentPattern) error {
	return b.repo.UpsertDeploymentPattern(ctx, pattern)
}

func sampleConfidence(games int) float64 {
	return math.Min(fallbackConfidence+float64(games)*confidencePerGame, maxBookConfidence)
}
