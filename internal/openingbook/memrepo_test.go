package openingbook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIndexGameDefaultsAndUpsert(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	g, err := repo.IndexGame(ctx, IndexGameParams{ID: " g1 ", Player1Faction: "Necrons", Player2Faction: "Aeldari", Winner: 2})
	require.NoError(t, err)
	require.Equal(t, "g1", g.ID)
	require.Equal(t, 5, g.TurnCount)
	require.Equal(t, "user", g.Source)
	require.False(t, g.GameDate.IsZero())

	_, err = repo.IndexGame(ctx, IndexGameParams{ID: "g1", Player1Faction: "Necrons", Player2Faction: "Aeldari", Winner: 1, Player1VP: 90})
	require.NoError(t, err)
	games, err := repo.QueryMatchup(ctx, "Necrons", "Aeldari", 10)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, 1, games[0].Winner)
	require.Equal(t, 90, games[0].Player1VP)
}

func TestIndexGameValidation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	cases := map[string]IndexGameParams{
		"winner zero":     {ID: "a", Player1Faction: "A", Player2Faction: "B"},
		"winner three":    {ID: "a", Player1Faction: "A", Player2Faction: "B", Winner: 3},
		"missing id":      {Player1Faction: "A", Player2Faction: "B", Winner: 1},
		"missing faction": {ID: "a", Player1Faction: "A", Winner: 1},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := repo.IndexGame(ctx, p)
			require.Error(t, err)
		})
	}
}

func TestQueryMatchupOrderAndLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		_, err := repo.IndexGame(ctx, IndexGameParams{
			ID: fmt.Sprintf("g%02d", i), Player1Faction: "A", Player2Faction: "B",
			Winner: 1 + i%2, GameDate: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err := repo.IndexGame(ctx, IndexGameParams{ID: "other", Player1Faction: "B", Player2Faction: "A", Winner: 1})
	require.NoError(t, err)

	games, err := repo.QueryMatchup(ctx, "A", "B", 0)
	require.NoError(t, err)
	require.Len(t, games, 10)
	require.Equal(t, "g14", games[0].ID)
	require.Equal(t, "g05", games[9].ID)

	games, err = repo.QueryMatchup(ctx, "A", "B", 3)
	require.NoError(t, err)
	require.Len(t, games, 3)

	games, err = repo.QueryFaction(ctx, "B", 0)
	require.NoError(t, err)
	require.Len(t, games, 1)
}

func TestGetMatchupStats(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	stats, err := repo.GetMatchupStats(ctx, "A", "B")
	require.NoError(t, err)
	require.Nil(t, stats)

	for i, p := range []IndexGameParams{
		{Winner: 1, Player1VP: 80, Player2VP: 40},
		{Winner: 2, Player1VP: 50, Player2VP: 70},
		{Winner: 1, Player1VP: 95, Player2VP: 30},
	} {
		p.ID = fmt.Sprintf("g%d", i)
		p.Player1Faction, p.Player2Faction = "A", "B"
		_, err := repo.IndexGame(ctx, p)
		require.NoError(t, err)
	}
	stats, err = repo.GetMatchupStats(ctx, "A", "B")
	require.NoError(t, err)
	require.Equal(t, 3, stats.Games)
	require.Equal(t, 2, stats.Wins)
	require.Equal(t, 1, stats.Losses)
	require.InDelta(t, 75.0, stats.AvgVPScored, 1e-9)
	require.InDelta(t, 140.0/3, stats.AvgVPConceded, 1e-9)
	require.InDelta(t, 2.0/3, stats.WinRate(), 1e-12)

	reverse, err := repo.GetMatchupStats(ctx, "B", "A")
	require.NoError(t, err)
	require.Nil(t, reverse)
}

func TestDeploymentPatterns(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	top, err := repo.TopDeploymentPattern(ctx, "A", "B")
	require.NoError(t, err)
	require.Nil(t, top)

	require.ErrorIs(t, repo.UpsertDeploymentPattern(ctx, nil), ErrNilPattern)
	require.Error(t, repo.UpsertDeploymentPattern(ctx, &DeploymentPattern{ID: "x", PlayerFaction: "A", OpponentFaction: "B", Name: "n", GamesUsed: 1, Wins: 2}))

	zones := map[string]string{"Squad": "centre"}
	require.NoError(t, repo.UpsertDeploymentPattern(ctx, &DeploymentPattern{ID: "b", PlayerFaction: "A", OpponentFaction: "B", Name: "Beta", Zones: zones, GamesUsed: 5, Wins: 2}))
	require.NoError(t, repo.UpsertDeploymentPattern(ctx, &DeploymentPattern{ID: "a", PlayerFaction: "A", OpponentFaction: "B", Name: "Alpha", GamesUsed: 5, Wins: 2}))
	require.NoError(t, repo.UpsertDeploymentPattern(ctx, &DeploymentPattern{ID: "c", PlayerFaction: "A", OpponentFaction: "B", Name: "Gamma", GamesUsed: 4, Wins: 4}))

	top, err = repo.TopDeploymentPattern(ctx, "A", "B")
	require.NoError(t, err)
	require.Equal(t, "a", top.ID)

	zones["Squad"] = "left"
	require.NoError(t, repo.UpsertDeploymentPattern(ctx, &DeploymentPattern{ID: "b", PlayerFaction: "A", OpponentFaction: "B", Name: "Beta", Zones: map[string]string{"Squad": "right"}, GamesUsed: 9, Wins: 2}))
	top, err = repo.TopDeploymentPattern(ctx, "A", "B")
	require.NoError(t, err)
	require.Equal(t, "Beta", top.Name)
	require.Equal(t, "right", top.Zones["Squad"])
	require.InDelta(t, 2.0/9, top.WinRate(), 1e-12)

	top.Zones["Squad"] = "mutated"
	again, err := repo.TopDeploymentPattern(ctx, "A", "B")
	require.NoError(t, err)
	require.Equal(t, "right", again.Zones["Squad"])
}

func TestListRecord(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := repo.IndexGame(ctx, IndexGameParams{
			ID:              fmt.Sprintf("g%02d", i),
			Player1Faction:  "A",
			Player2Faction:  "B",
			Player1ListHash: "mine",
			Winner:          1 + i%3/2,
		})
		require.NoError(t, err)
	}
	_, err := repo.IndexGame(ctx, IndexGameParams{ID: "other", Player1Faction: "A", Player2Faction: "B", Player1ListHash: "theirs", Winner: 1})
	require.NoError(t, err)
	_, err = repo.IndexGame(ctx, IndexGameParams{ID: "elsewhere", Player1Faction: "A", Player2Faction: "C", Player1ListHash: "mine", Winner: 1})
	require.NoError(t, err)

	games, wins, err := repo.ListRecord(ctx, "A", "B", " mine ")
	require.NoError(t, err)
	require.Equal(t, 12, games)
	require.Equal(t, 8, wins)

	games, wins, err = repo.ListRecord(ctx, "A", "B", "unknown")
	require.NoError(t, err)
	require.Zero(t, games)
	require.Zero(t, wins)
}
