package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig is read from the environment. REDIS_URL and DATABASE_URL are
// optional: without Redis snapshots and the stats cache are disabled, and
// without a database the opening book lives in memory.
type AppConfig struct {
	HTTPAddr       string        `envconfig:"PRIMORDIA_HTTP_ADDR" default:":8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`

	RedisURL    string `envconfig:"REDIS_URL"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	SnapshotTTL       time.Duration `envconfig:"SNAPSHOT_TTL" default:"24h"`
	StatsCacheTTL     time.Duration `envconfig:"STATS_CACHE_TTL" default:"10m"`
	MatchupQueryLimit int           `envconfig:"MATCHUP_QUERY_LIMIT" default:"10"`

	MessagesDir string `envconfig:"MESSAGES_DIR"`

	EncoderBoardSize float64 `envconfig:"ENCODER_BOARD_SIZE" default:"60"`
	EncoderMaxUnits  int     `envconfig:"ENCODER_MAX_UNITS" default:"20"`

	RenderBoardWidth  float64 `envconfig:"RENDER_BOARD_WIDTH" default:"60"`
	RenderBoardHeight float64 `envconfig:"RENDER_BOARD_HEIGHT" default:"44"`
}

func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)
}

// Validate rejects values that would make a component misbehave rather
// than fall back.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("PRIMORDIA_HTTP_ADDR must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.SnapshotTTL <= 0 {
		errs = append(errs, errors.New("SNAPSHOT_TTL must be positive"))
	}
	if c.StatsCacheTTL <= 0 {
		errs = append(errs, errors.New("STATS_CACHE_TTL must be positive"))
	}
	if c.MatchupQueryLimit <= 0 || c.MatchupQueryLimit > 500 {
		errs = append(errs, errors.New("MATCHUP_QUERY_LIMIT must be within [1, 500]"))
	}
	if c.EncoderBoardSize <= 0 {
		errs = append(errs, errors.New("ENCODER_BOARD_SIZE must be positive"))
	}
	if c.EncoderMaxUnits <= 0 {
		errs = append(errs, errors.New("ENCODER_MAX_UNITS must be positive"))
	}
	if c.RenderBoardWidth <= 0 || c.RenderBoardHeight <= 0 {
		errs = append(errs, errors.New("RENDER_BOARD_WIDTH and RENDER_BOARD_HEIGHT must be positive"))
	}
	return errors.Join(errs...)
}

// RedisEnabled reports whether snapshots and the stats cache are available.
func (c *AppConfig) RedisEnabled() bool { return c.RedisURL != "" }

// DatabaseEnabled reports whether the opening book is persisted in Postgres.
func (c *AppConfig) DatabaseEnabled() bool { return c.DatabaseURL != "" }
