package evalbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/park285/primordia/internal/adapter/evalpresenter"
	"github.com/park285/primordia/internal/config"
	"github.com/park285/primordia/internal/encoding"
	"github.com/park285/primordia/internal/eval"
	"github.com/park285/primordia/internal/health"
	"github.com/park285/primordia/internal/msgcat"
	"github.com/park285/primordia/internal/openingbook"
	"github.com/park285/primordia/internal/render"
	"github.com/park285/primordia/internal/service/analysis"
	"github.com/park285/primordia/internal/snapshot"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

type Deps struct {
	Service   *analysis.Service
	Book      *openingbook.Book
	Formatter *evalpresenter.Formatter
	Health    *health.Checker

	redis *redis.Client
	db    *sql.DB
}

// New builds every dependency from config. Redis and Postgres are optional;
// whichever is configured must answer a ping before New returns.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{Health: health.NewChecker()}

	// Redis (optional): snapshots and the stats cache
	var store analysis.SnapshotStore
	var statsCache *openingbook.StatsCache
	if cfg.RedisEnabled() {
		rdb, err := openRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		deps.redis = rdb
		snapshots := snapshot.NewStore(rdb, cfg.SnapshotTTL)
		store = snapshots
		statsCache = openingbook.NewStatsCache(rdb, cfg.StatsCacheTTL)
		deps.Health.Register("redis", snapshots.Ping)
	} else {
		logger.Warn("REDIS_URL not set; state snapshots and stats cache disabled")
	}

	// Opening book repository: Postgres when configured, memory otherwise
	var repo openingbook.Repository
	if cfg.DatabaseEnabled() {
		db, err := openPostgres(cfg.DatabaseURL)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.db = db
		pg := openingbook.NewPostgresRepository(db)
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err = pg.Migrate(ctx)
		cancel()
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("migrate opening book: %w", err)
		}
		repo = pg
		deps.Health.Register("postgres", db.PingContext)
	} else {
		logger.Warn("DATABASE_URL not set; opening book kept in memory")
		repo = openingbook.NewMemoryRepository()
	}

	book, err := openingbook.NewBook(repo, statsCache, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Book = book

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps.Formatter = evalpresenter.NewFormatter(cat)

	svc, err := analysis.NewService(
		eval.NewHeuristicEvaluator(),
		store,
		book,
		render.NewPNGRenderer(cfg.RenderBoardWidth, cfg.RenderBoardHeight),
		encoding.NewEncoder(cfg.EncoderMaxUnits, cfg.EncoderBoardSize),
		analysis.Config{HistoryLimit: cfg.MatchupQueryLimit},
		logger,
	)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Service = svc
	return deps, nil
}

// Close releases the Redis client and the database pool.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}

func openRedis(raw string) (*redis.Client, error) {
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// basic pool settings
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
