package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout)
	require.Equal(t, 24*time.Hour, cfg.SnapshotTTL)
	require.Equal(t, 10*time.Minute, cfg.StatsCacheTTL)
	require.Equal(t, 10, cfg.MatchupQueryLimit)
	require.Equal(t, 60.0, cfg.EncoderBoardSize)
	require.Equal(t, 20, cfg.EncoderMaxUnits)
	require.Equal(t, 60.0, cfg.RenderBoardWidth)
	require.Equal(t, 44.0, cfg.RenderBoardHeight)
	require.False(t, cfg.RedisEnabled())
	require.False(t, cfg.DatabaseEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PRIMORDIA_HTTP_ADDR", " :9090 ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("SNAPSHOT_TTL", "2h")
	t.Setenv("MATCHUP_QUERY_LIMIT", "25")
	t.Setenv("ENCODER_MAX_UNITS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.True(t, cfg.RedisEnabled())
	require.Equal(t, 2*time.Hour, cfg.SnapshotTTL)
	require.Equal(t, 25, cfg.MatchupQueryLimit)
	require.Equal(t, 12, cfg.EncoderMaxUnits)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MATCHUP_QUERY_LIMIT", "0")
	t.Setenv("SNAPSHOT_TTL", "-1s")
	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MATCHUP_QUERY_LIMIT")
	require.Contains(t, err.Error(), "SNAPSHOT_TTL")
}

func TestLoadRejectsUnparsable(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
}
