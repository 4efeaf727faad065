package snapshot

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/eval"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func sampleState(t *testing.T) *domain.GameState {
	t.Helper()
	u := domain.NewUnit("Intercessors", "Space Marines", 10, 5, 90)
	u.Position = domain.Position{X: 12.5, Y: 30}
	u.Keywords = []string{"Infantry", "Battleline"}
	e := domain.NewUnit("Boyz", "Orks", 10, 10, 80)
	s, err := domain.NewGameState([]*domain.Unit{u}, []*domain.Unit{e},
		domain.WithTurn(3, domain.PhaseShooting, 1),
		domain.WithVictoryPoints(25, 15),
		domain.WithMission("Take and Hold", "Hammer and Anvil"),
	)
	require.NoError(t, err)
	m := domain.NewMove(u.ID, domain.PhaseShooting, "shoot").WithTarget(e.ID)
	m.DiceRequired = []int{3, 4}
	require.NoError(t, s.RecordMove(m))
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	s := sampleState(t)

	require.NoError(t, store.Save(ctx, s))
	require.True(t, mr.Exists("gs:"+s.ID.String()))
	require.Equal(t, time.Hour, mr.TTL("gs:"+s.ID.String()))

	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, domain.PhaseShooting, got.CurrentPhase)
	require.Equal(t, 25, got.Player1VP)
	require.Len(t, got.MoveHistory, 1)
	require.Equal(t, s.Player1Units[0].ID, got.Player1Units[0].ID)
	require.Equal(t, []string{"Infantry", "Battleline"}, got.Player1Units[0].Keywords)

	// Evaluation of the reloaded state matches the original.
	e := eval.NewHeuristicEvaluator()
	require.Equal(t, e.Evaluate(s), e.Evaluate(got))
}

func TestLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)
	got, err := store.Load(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)

	ev, err := store.LoadEvaluation(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestEvaluationLifecycle(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	s := sampleState(t)
	ev := eval.NewHeuristicEvaluator().Evaluate(s)

	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.SaveEvaluation(ctx, s.ID, ev))
	got, err := store.LoadEvaluation(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, ev, *got)

	require.NoError(t, store.Delete(ctx, s.ID))
	require.False(t, mr.Exists("gs:"+s.ID.String()))
	require.False(t, mr.Exists("gs:"+s.ID.String()+":eval"))
}

func TestSnapshotExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	s := sampleState(t)
	require.NoError(t, store.Save(ctx, s))
	mr.FastForward(2 * time.Hour)
	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveNil(t *testing.T) {
	store, _ := newTestStore(t)
	require.ErrorIs(t, store.Save(context.Background(), nil), ErrNilState)
}

func TestLoadRejectsCorruptSnapshot(t *testing.T) {
	store, mr := newTestStore(t)
	id := uuid.New()
	require.NoError(t, mr.Set("gs:"+id.String(), "{not json"))
	_, err := store.Load(context.Background(), id)
	require.Error(t, err)
}
