package openingbook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStatsTTL = 10 * time.Minute

// StatsCache keeps matchup statistics in Redis as JSON. A nil cache or a
// nil client turns every call into a no-op miss.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func (c *StatsCache) key(faction, opponent string) string {
	return "book:stats:" + strings.TrimSpace(faction) + "|" + strings.TrimSpace(opponent)
}

func (c *StatsCache) enabled() bool { return c != nil && c.rdb != nil }

// Get reports a hit only when a value was stored for the matchup.
func (c *StatsCache) Get(ctx context.Context, faction, opponent string) (*FactionStatistics, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, c.key(faction, opponent)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s FactionStatistics
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

func (c *StatsCache) Set(ctx context.Context, stats *FactionStatistics) error {
	if !c.enabled() || stats == nil {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(stats.Faction, stats.Opponent), raw, c.ttl).Err()
}

func (c *StatsCache) Invalidate(ctx context.Context, faction, opponent string) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Del(ctx, c.key(faction, opponent)).Err()
}
