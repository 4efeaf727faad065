package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/encoding"
	"github.com/park285/primordia/internal/eval"
	"github.com/park285/primordia/internal/openingbook"
	"github.com/park285/primordia/internal/render"
	"go.uber.org/zap"
)

var (
	ErrSnapshotNotFound  = errors.New("game state snapshot not found")
	ErrSnapshotsDisabled = errors.New("state snapshots are disabled")
	ErrNilState          = errors.New("nil game state")
)

const defaultHistoryLimit = 10

// SnapshotStore persists states and their latest evaluation.
type SnapshotStore interface {
	Save(ctx context.Context, state *domain.GameState) error
	Load(ctx context.Context, id uuid.UUID) (*domain.GameState, error)
	SaveEvaluation(ctx context.Context, id uuid.UUID, ev eval.PositionEvaluation) error
	LoadEvaluation(ctx context.Context, id uuid.UUID) (*eval.PositionEvaluation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Config struct {
	HistoryLimit int
}

type Service struct {
	evaluator eval.Evaluator
	snapshots SnapshotStore
	book      *openingbook.Book
	renderer  render.Renderer
	encoder   *encoding.Encoder
	cfg       Config
	logger    *zap.Logger
}

// NewService wires the analysis pipeline. snapshots may be nil, in which
// case snapshot operations fail with ErrSnapshotsDisabled.
func NewService(evaluator eval.Evaluator, snapshots SnapshotStore, book *openingbook.Book, renderer render.Renderer, encoder *encoding.Encoder, cfg Config, logger *zap.Logger) (*Service, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if book == nil {
		return nil, fmt.Errorf("opening book is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if encoder == nil {
		encoder = encoding.NewEncoder(0, 0)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		evaluator: evaluator,
		snapshots: snapshots,
		book:      book,
		renderer:  renderer,
		encoder:   encoder,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// SnapshotsEnabled reports whether a snapshot store is configured.
func (s *Service) SnapshotsEnabled() bool { return s.snapshots != nil }

func (s *Service) Book() *openingbook.Book { return s.book }

// Evaluate scores a state without persisting anything.
func (s *Service) Evaluate(state *domain.GameState) (eval.PositionEvaluation, error) {
	if state == nil {
		return eval.PositionEvaluation{}, ErrNilState
	}
	if err := state.Validate(); err != nil {
		return eval.PositionEvaluation{}, err
	}
	ev := s.evaluator.Evaluate(state)
	s.logger.Debug("position evaluated",
		zap.String("state_id", state.ID.String()),
		zap.Int("turn", state.TurnNumber),
		zap.Float64("advantage", ev.PlayerAdvantage),
	)
	return ev, nil
}

// SaveSnapshot stores the state together with its evaluation.
func (s *Service) SaveSnapshot(ctx context.Context, state *domain.GameState) (eval.PositionEvaluation, error) {
	if err := s.ensureSnapshots(); err != nil {
		return eval.PositionEvaluation{}, err
	}
	ev, err := s.Evaluate(state)
	if err != nil {
		return eval.PositionEvaluation{}, err
	}
	if err := s.snapshots.Save(ctx, state); err != nil {
		return eval.PositionEvaluation{}, fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.snapshots.SaveEvaluation(ctx, state.ID, ev); err != nil {
		return eval.PositionEvaluation{}, fmt.Errorf("save evaluation: %w", err)
	}
	s.logger.Info("state snapshot saved", zap.String("state_id", state.ID.String()))
	return ev, nil
}

// LoadSnapshot returns ErrSnapshotNotFound for unknown or expired ids.
func (s *Service) LoadSnapshot(ctx context.Context, id uuid.UUID) (*domain.GameState, error) {
	if err := s.ensureSnapshots(); err != nil {
		return nil, err
	}
	state, err := s.snapshots.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if state == nil {
		return nil, ErrSnapshotNotFound
	}
	return state, nil
}

// DeleteSnapshot drops the state and its evaluation. Unknown ids are not an
// error.
func (s *Service) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	if err := s.ensureSnapshots(); err != nil {
		return err
	}
	if err := s.snapshots.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	s.logger.Info("state snapshot deleted", zap.String("state_id", id.String()))
	return nil
}

// EvaluateSnapshot returns the stored evaluation, recomputing and storing it
// when it has expired before the state did.
func (s *Service) EvaluateSnapshot(ctx context.Context, id uuid.UUID) (eval.PositionEvaluation, error) {
	if err := s.ensureSnapshots(); err != nil {
		return eval.PositionEvaluation{}, err
	}
	cached, err := s.snapshots.LoadEvaluation(ctx, id)
	if err != nil {
		s.logger.Warn("stored evaluation unreadable", zap.String("state_id", id.String()), zap.Error(err))
	} else if cached != nil {
		return *cached, nil
	}

	state, err := s.LoadSnapshot(ctx, id)
	if err != nil {
		return eval.PositionEvaluation{}, err
	}
	ev, err := s.Evaluate(state)
	if err != nil {
		return eval.PositionEvaluation{}, err
	}
	if err := s.snapshots.SaveEvaluation(ctx, id, ev); err != nil {
		s.logger.Warn("evaluation refresh failed", zap.String("state_id", id.String()), zap.Error(err))
	}
	return ev, nil
}

// RecordResult indexes a snapshotted game into the opening book. The
// snapshot is kept so the result can be corrected by recording it again.
func (s *Service) RecordResult(ctx context.Context, id uuid.UUID, winner int) (openingbook.HistoricalGameResult, error) {
	if err := openingbook.ValidateWinner(winner); err != nil {
		return openingbook.HistoricalGameResult{}, err
	}
	state, err := s.LoadSnapshot(ctx, id)
	if err != nil {
		return openingbook.HistoricalGameResult{}, err
	}
	return s.RecordState(ctx, state, winner)
}

// RecordState indexes a final state directly.
func (s *Service) RecordState(ctx context.Context, state *domain.GameState, winner int) (openingbook.HistoricalGameResult, error) {
	if state == nil {
		return openingbook.HistoricalGameResult{}, ErrNilState
	}
	if err := state.Validate(); err != nil {
		return openingbook.HistoricalGameResult{}, err
	}
	game, err := s.book.IndexGameState(ctx, state, winner)
	if err != nil {
		return openingbook.HistoricalGameResult{}, fmt.Errorf("index game: %w", err)
	}
	return game, nil
}

// Render draws the state as PNG.
func (s *Service) Render(ctx context.Context, state *domain.GameState, opts render.Options) ([]byte, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	png, err := s.renderer.RenderPNG(ctx, state, opts)
	if err != nil {
		return nil, fmt.Errorf("render board: %w", err)
	}
	return png, nil
}

// Encode converts the state into model features.
func (s *Service) Encode(state *domain.GameState) (encoding.EncodedState, error) {
	if state == nil {
		return encoding.EncodedState{}, ErrNilState
	}
	if err := state.Validate(); err != nil {
		return encoding.EncodedState{}, err
	}
	return s.encoder.Encode(state), nil
}

func (s *Service) Encoder() *encoding.Encoder { return s.encoder }

func (s *Service) MatchupStats(ctx context.Context, faction, opponent string) (*openingbook.FactionStatistics, error) {
	faction, opponent = strings.TrimSpace(faction), strings.TrimSpace(opponent)
	if faction == "" || opponent == "" {
		return nil, &domain.ValidationError{Field: "matchup", Value: faction + "/" + opponent, Reason: "faction and opponent are required"}
	}
	return s.book.MatchupStats(ctx, faction, opponent)
}

func (s *Service) History(ctx context.Context, q openingbook.HistoryQuery) ([]openingbook.HistoricalGame, error) {
	if q.Limit <= 0 {
		q.Limit = s.cfg.HistoryLimit
	}
	return s.book.GetHistoricalGames(ctx, q)
}

func (s *Service) BookSetup(ctx context.Context, faction, listHash, opponent string) (*openingbook.DeploymentRecommendation, error) {
	if strings.TrimSpace(faction) == "" || strings.TrimSpace(opponent) == "" {
		return nil, &domain.ValidationError{Field: "matchup", Value: faction + "/" + opponent, Reason: "faction and opponent are required"}
	}
	return s.book.GetBookSetup(ctx, faction, listHash, opponent)
}

// RecordDeployment stores a pattern. A blank id is derived from the
// factions and the name, so re-posting the same pattern replaces it.
func (s *Service) RecordDeployment(ctx context.Context, pattern openingbook.DeploymentPattern) (openingbook.DeploymentPattern, error) {
	if strings.TrimSpace(pattern.ID) == "" {
		seed := strings.ToLower(strings.Join([]string{
			strings.TrimSpace(pattern.PlayerFaction),
			strings.TrimSpace(pattern.OpponentFaction),
			strings.TrimSpace(pattern.Name),
		}, "|"))
		pattern.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	if err := s.book.RecordDeployment(ctx, &pattern); err != nil {
		return openingbook.DeploymentPattern{}, fmt.Errorf("record deployment: %w", err)
	}
	s.logger.Info("deployment pattern recorded",
		zap.String("pattern_id", pattern.ID),
		zap.String("faction", pattern.PlayerFaction),
		zap.String("opponent", pattern.OpponentFaction),
	)
	return pattern, nil
}

func (s *Service) ensureSnapshots() error {
	if s.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	return nil
}
