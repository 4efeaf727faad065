package openingbook

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// memrepo is the in-memory Repository used when no database is configured.
type memrepo struct {
	mu  sync.RWMutex
	now func() time.Time

	games    map[string]HistoricalGameResult
	patterns map[string]DeploymentPattern
}

func NewMemoryRepository() Repository {
	return &memrepo{
		now:      time.Now,
		games:    make(map[string]HistoricalGameResult),
		patterns: make(map[string]DeploymentPattern),
	}
}

func (m *memrepo) IndexGame(ctx context.Context, params IndexGameParams) (HistoricalGameResult, error) {
	game, err := params.Normalize(m.now())
	if err != nil {
		return HistoricalGameResult{}, err
	}
	m.mu.Lock()
	m.games[game.ID] = game
	m.mu.Unlock()
	return game, nil
}

func (m *memrepo) QueryMatchup(ctx context.Context, faction, opponent string, limit int) ([]HistoricalGameResult, error) {
	faction, opponent = strings.TrimSpace(faction), strings.TrimSpace(opponent)
	return m.query(limit, func(g HistoricalGameResult) bool {
		return g.Player1Faction == faction && g.Player2Faction == opponent
	}), nil
}

func (m *memrepo) QueryFaction(ctx context.Context, faction string, limit int) ([]HistoricalGameResult, error) {
	faction = strings.TrimSpace(faction)
	return m.query(limit, func(g HistoricalGameResult) bool {
		return g.Player1Faction == faction
	}), nil
}

func (m *memrepo) query(limit int, match func(HistoricalGameResult) bool) []HistoricalGameResult {
	m.mu.RLock()
	items := make([]HistoricalGameResult, 0)
	for _, g := range m.games {
		if match(g) {
			items = append(items, g)
		}
	}
	m.mu.RUnlock()

	// game_date desc, id asc for ties
	sort.Slice(items, func(i, j int) bool {
		if !items[i].GameDate.Equal(items[j].GameDate) {
			return items[i].GameDate.After(items[j].GameDate)
		}
		return items[i].ID < items[j].ID
	})
	if limit = normalizeLimit(limit); len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (m *memrepo) ListRecord(ctx context.Context, faction, opponent, listHash string) (int, int, error) {
	faction, opponent, listHash = strings.TrimSpace(faction), strings.TrimSpace(opponent), strings.TrimSpace(listHash)
	var games, wins int
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.games {
		if g.Player1Faction != faction || g.Player2Faction != opponent || g.Player1ListHash != listHash {
			continue
		}
		games++
		if g.Player1Won() {
			wins++
		}
	}
	return games, wins, nil
}

func (m *memrepo) GetMatchupStats(ctx context.Context, faction, opponent string) (*FactionStatistics, error) {
	faction, opponent = strings.TrimSpace(faction), strings.TrimSpace(opponent)
	s := FactionStatistics{Faction: faction, Opponent: opponent}
	var scored, conceded int

	m.mu.RLock()
	for _, g := range m.games {
		if g.Player1Faction != faction || g.Player2Faction != opponent {
			continue
		}
		s.Games++
		if g.Winner == 1 {
			s.Wins++
		} else {
			s.Losses++
		}
		scored += g.Player1VP
		conceded += g.Player2VP
	}
	m.mu.RUnlock()

	if s.Games == 0 {
		return nil, nil
	}
	s.AvgVPScored = float64(scored) / float64(s.Games)
	s.AvgVPConceded = float64(conceded) / float64(s.Games)
	return &s, nil
}

func (m *memrepo) UpsertDeploymentPattern(ctx context.Context, pattern *DeploymentPattern) error {
	if pattern == nil {
		return ErrNilPattern
	}
	if err := pattern.Validate(); err != nil {
		return err
	}
	p := pattern.clone()
	p.ID = strings.TrimSpace(p.ID)
	p.PlayerFaction = strings.TrimSpace(p.PlayerFaction)
	p.OpponentFaction = strings.TrimSpace(p.OpponentFaction)
	m.mu.Lock()
	m.patterns[p.ID] = p
	m.mu.Unlock()
	return nil
}

func (m *memrepo) TopDeploymentPattern(ctx context.Context, faction, opponent string) (*DeploymentPattern, error) {
	faction, opponent = strings.TrimSpace(faction), strings.TrimSpace(opponent)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *DeploymentPattern
	for _, p := range m.patterns {
		if p.PlayerFaction != faction || p.OpponentFaction != opponent {
			continue
		}
		if best == nil || betterPattern(p, *best) {
			c := p.clone()
			best = &c
		}
	}
	return best, nil
}

// betterPattern mirrors ORDER BY games_used DESC, wins DESC, id.
func betterPattern(a, b DeploymentPattern) bool {
	if a.GamesUsed != b.GamesUsed {
		return a.GamesUsed > b.GamesUsed
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	return a.ID < b.ID
}
