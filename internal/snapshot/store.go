package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/eval"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

var ErrNilState = errors.New("nil game state")

// Store keeps GameState snapshots and their latest evaluation in Redis.
// Every write refreshes the TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) keyState(id uuid.UUID) string { return "gs:" + id.String() }
func (s *Store) keyEval(id uuid.UUID) string  { return s.keyState(id) + ":eval" }

func (s *Store) Save(ctx context.Context, state *domain.GameState) error {
	if state == nil {
		return ErrNilState
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}
	if err := s.rdb.Set(ctx, s.keyState(state.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	// keep the companion evaluation alive as long as the state
	_ = s.rdb.Expire(ctx, s.keyEval(state.ID), s.ttl).Err()
	return nil
}

// Load returns nil, nil when the snapshot is absent or expired.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*domain.GameState, error) {
	raw, err := s.rdb.Get(ctx, s.keyState(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	var state domain.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal game state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveEvaluation(ctx context.Context, id uuid.UUID, ev eval.PositionEvaluation) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}
	if err := s.rdb.Set(ctx, s.keyEval(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save evaluation: %w", err)
	}
	return nil
}

// LoadEvaluation returns nil, nil when no evaluation is stored.
func (s *Store) LoadEvaluation(ctx context.Context, id uuid.UUID) (*eval.PositionEvaluation, error) {
	raw, err := s.rdb.Get(ctx, s.keyEval(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load evaluation: %w", err)
	}
	var ev eval.PositionEvaluation
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	return &ev, nil
}

// Delete removes the snapshot and its evaluation.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, s.keyState(id), s.keyEval(id)).Err()
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
