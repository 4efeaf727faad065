package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/primordia/internal/adapter/evalpresenter"
	"github.com/park285/primordia/internal/eval"
	"github.com/park285/primordia/internal/health"
	"github.com/park285/primordia/internal/msgcat"
	"github.com/park285/primordia/internal/openingbook"
	"github.com/park285/primordia/internal/render"
	"github.com/park285/primordia/internal/service/analysis"
	"github.com/park285/primordia/internal/snapshot"
	"github.com/park285/primordia/pkg/evaldto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const scenarioYAML = `
id: 5d0c3a7e-8f7b-4a0e-9a59-3d2b6f0e4c11
turn: 2
phase: movement
player1:
  - {name: Intercessors, faction: Space Marines, wounds: 10, models: 5, points: 200, position: {x: 10, y: 5}}
player2:
  - {name: Boyz, faction: Orks, wounds: 10, models: 10, points: 50, position: {x: 20, y: 40}}
`

type testEnv struct {
	client *fasthttp.Client
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, withSnapshots bool) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	book, err := openingbook.NewBook(openingbook.NewMemoryRepository(), openingbook.NewStatsCache(rdb, time.Minute), nil)
	require.NoError(t, err)
	var store analysis.SnapshotStore
	if withSnapshots {
		store = snapshot.NewStore(rdb, time.Hour)
	}
	svc, err := analysis.NewService(eval.NewHeuristicEvaluator(), store, book, render.NewPNGRenderer(0, 0), nil, analysis.Config{}, nil)
	require.NoError(t, err)

	cat, err := msgcat.New("")
	require.NoError(t, err)
	checker := health.NewChecker()
	checker.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	srv, err := NewServer(svc, evalpresenter.NewFormatter(cat), checker, Config{RequestTimeout: 5 * time.Second}, nil)
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = ln.Close()
	})

	return &testEnv{
		client: &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }},
		mr:     mr,
	}
}

func (e *testEnv) do(t *testing.T, method, uri string, body []byte) (int, []byte, string) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI("http://primordia.test" + uri)
	if body != nil {
		req.SetBody(body)
	}
	require.NoError(t, e.client.DoTimeout(req, resp, 5*time.Second))
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), string(resp.Header.ContentType())
}

func decodeJSON[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false)
	status, body, _ := env.do(t, fasthttp.MethodGet, "/healthz", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	got := decodeJSON[evaldto.HealthResponse](t, body)
	require.Equal(t, "operational", got.Status)
	require.Equal(t, "primordia", got.Realm)
	require.Equal(t, "ok", got.Components["redis"])

	env.mr.Close()
	status, body, _ = env.do(t, fasthttp.MethodGet, "/healthz", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	got = decodeJSON[evaldto.HealthResponse](t, body)
	require.Equal(t, "operational", got.Status)
	require.NotEqual(t, "ok", got.Components["redis"])
}

func TestEvaluate(t *testing.T) {
	env := newTestEnv(t, false)
	status, body, ct := env.do(t, fasthttp.MethodPost, "/v1/evaluate", []byte(scenarioYAML))
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	require.Equal(t, "application/json", ct)

	got := decodeJSON[evaldto.EvaluateResponse](t, body)
	require.Equal(t, "5d0c3a7e-8f7b-4a0e-9a59-3d2b6f0e4c11", got.StateID)
	require.InDelta(t, 0.24, got.Evaluation.PlayerAdvantage, 1e-12)
	require.Equal(t, "slight advantage player 1", got.Evaluation.Band)
	require.Contains(t, got.Report, "Turn 2 (movement)")
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, false)
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty body", "", fasthttp.StatusBadRequest, evaldto.CodeBadRequest},
		{"active player", "active_player: 4\n", fasthttp.StatusBadRequest, evaldto.CodeValidation},
		{"negative vp", "player1_vp: 10\nplayer2_vp: -9\n", fasthttp.StatusBadRequest, evaldto.CodeValidation},
		{"malformed yaml", "player1: [unclosed\n", fasthttp.StatusBadRequest, evaldto.CodeBadRequest},
		{"duplicate ids", `
player1: [{id: 0f4b3c52-6a8e-4f65-bd8f-1a2e9c3d7b20, name: A, faction: F, wounds: 1, models: 1, points: 1}]
player2: [{id: 0f4b3c52-6a8e-4f65-bd8f-1a2e9c3d7b20, name: B, faction: G, wounds: 1, models: 1, points: 1}]
`, fasthttp.StatusUnprocessableEntity, evaldto.CodeInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body, _ := env.do(t, fasthttp.MethodPost, "/v1/evaluate", []byte(tc.body))
			require.Equal(t, tc.status, status, string(body))
			got := decodeJSON[evaldto.ErrorResponse](t, body)
			require.Equal(t, tc.code, got.Error.Code)
			require.NotEmpty(t, got.Error.Message)
		})
	}
}

func TestRoutingErrors(t *testing.T) {
	env := newTestEnv(t, false)
	status, _, _ := env.do(t, fasthttp.MethodGet, "/v1/nope", nil)
	require.Equal(t, fasthttp.StatusNotFound, status)

	status, _, _ = env.do(t, fasthttp.MethodGet, "/v1/evaluate", nil)
	require.Equal(t, fasthttp.StatusMethodNotAllowed, status)

	status, body, _ := env.do(t, fasthttp.MethodGet, "/v1/states/not-a-uuid/evaluation", nil)
	require.Equal(t, fasthttp.StatusBadRequest, status)
	require.Equal(t, evaldto.CodeValidation, decodeJSON[evaldto.ErrorResponse](t, body).Error.Code)
}

func TestSnapshotLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	status, body, _ := env.do(t, fasthttp.MethodPost, "/v1/states", []byte(scenarioYAML))
	require.Equal(t, fasthttp.StatusCreated, status, string(body))
	saved := decodeJSON[evaldto.SaveStateResponse](t, body)

	status, body, _ = env.do(t, fasthttp.MethodGet, "/v1/states/"+saved.StateID+"/evaluation", nil)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	got := decodeJSON[evaldto.EvaluateResponse](t, body)
	require.Equal(t, saved.Evaluation.PlayerAdvantage, got.Evaluation.PlayerAdvantage)

	status, body, _ = env.do(t, fasthttp.MethodGet, "/v1/states/0f4b3c52-6a8e-4f65-bd8f-1a2e9c3d7b20/evaluation", nil)
	require.Equal(t, fasthttp.StatusNotFound, status)
	require.Equal(t, evaldto.CodeNotFound, decodeJSON[evaldto.ErrorResponse](t, body).Error.Code)

	rec, _ := json.Marshal(evaldto.RecordGameRequest{StateID: saved.StateID, Winner: 1})
	status, body, _ = env.do(t, fasthttp.MethodPost, "/v1/games", rec)
	require.Equal(t, fasthttp.StatusCreated, status, string(body))
	game := decodeJSON[evaldto.RecordGameResponse](t, body)
	require.Equal(t, "Space Marines", game.Game.Player1Faction)
	require.Contains(t, game.Report, "Indexed game")

	status, body, _ = env.do(t, fasthttp.MethodGet, "/v1/matchups/stats?faction=Space+Marines&opponent=Orks", nil)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	stats := decodeJSON[evaldto.MatchupStatsResponse](t, body)
	require.NotNil(t, stats.Stats)
	require.Equal(t, 1, stats.Stats.Games)
	require.Equal(t, 1.0, stats.Stats.WinRate)

	status, body, _ = env.do(t, fasthttp.MethodGet, "/v1/matchups/games?faction=Space+Marines&limit=5", nil)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	require.Len(t, decodeJSON[evaldto.HistoryResponse](t, body).Games, 1)

	status, body, _ = env.do(t, fasthttp.MethodGet, "/v1/book?faction=Space+Marines&opponent=Orks", nil)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	setup := decodeJSON[evaldto.BookSetupResponse](t, body)
	require.Equal(t, "Standard Deployment", setup.Setup.Name)
	require.Equal(t, 1, setup.Setup.BasedOnGames)

	status, body, _ = env.do(t, fasthttp.MethodDelete, "/v1/states/"+saved.StateID, nil)
	require.Equal(t, fasthttp.StatusNoContent, status, string(body))
	require.False(t, env.mr.Exists("gs:"+saved.StateID))
	status, _, _ = env.do(t, fasthttp.MethodGet, "/v1/states/"+saved.StateID+"/evaluation", nil)
	require.Equal(t, fasthttp.StatusNotFound, status)

	status, _, _ = env.do(t, fasthttp.MethodGet, "/v1/states/"+saved.StateID, nil)
	require.Equal(t, fasthttp.StatusMethodNotAllowed, status)
}

func TestSnapshotsDisabledIsUnavailable(t *testing.T) {
	env := newTestEnv(t, false)
	status, body, _ := env.do(t, fasthttp.MethodPost, "/v1/states", []byte(scenarioYAML))
	require.Equal(t, fasthttp.StatusServiceUnavailable, status)
	require.Equal(t, evaldto.CodeUnavailable, decodeJSON[evaldto.ErrorResponse](t, body).Error.Code)
}

func TestMatchupStatsEmpty(t *testing.T) {
	env := newTestEnv(t, false)
	status, body, _ := env.do(t, fasthttp.MethodGet, "/v1/matchups/stats?faction=Orks&opponent=Tau", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	got := decodeJSON[evaldto.MatchupStatsResponse](t, body)
	require.Nil(t, got.Stats)
	require.Equal(t, "No games recorded for Orks vs Tau.", got.Report)

	status, _, _ = env.do(t, fasthttp.MethodGet, "/v1/matchups/stats?faction=Orks", nil)
	require.Equal(t, fasthttp.StatusBadRequest, status)

	status, _, _ = env.do(t, fasthttp.MethodGet, "/v1/matchups/games?faction=Orks&limit=x", nil)
	require.Equal(t, fasthttp.StatusBadRequest, status)
}

func TestDeploymentsFeedTheBook(t *testing.T) {
	env := newTestEnv(t, false)
	req, _ := json.Marshal(evaldto.DeploymentRequest{
		PlayerFaction:   "Orks",
		OpponentFaction: "Tau",
		Name:            "Green Tide",
		Zones:           map[string]string{"Boyz": "centre"},
		GamesUsed:       6,
		Wins:            4,
	})
	status, body, _ := env.do(t, fasthttp.MethodPost, "/v1/deployments", req)
	require.Equal(t, fasthttp.StatusCreated, status, string(body))
	require.NotEmpty(t, decodeJSON[evaldto.DeploymentRequest](t, body).ID)

	status, body, _ = env.do(t, fasthttp.MethodGet, "/v1/book?faction=Orks&opponent=Tau", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	setup := decodeJSON[evaldto.BookSetupResponse](t, body)
	require.Equal(t, "Green Tide", setup.Setup.Name)
	require.Equal(t, "centre", setup.Setup.Zones["Boyz"])
	require.Contains(t, setup.Report, "- Boyz: centre")

	bad, _ := json.Marshal(evaldto.DeploymentRequest{PlayerFaction: "Orks", OpponentFaction: "Tau", Name: "x", GamesUsed: 1, Wins: 2})
	status, _, _ = env.do(t, fasthttp.MethodPost, "/v1/deployments", bad)
	require.Equal(t, fasthttp.StatusBadRequest, status)
}

func TestRenderAndEncode(t *testing.T) {
	env := newTestEnv(t, false)
	status, body, ct := env.do(t, fasthttp.MethodPost, "/v1/render?title=Demo", []byte(scenarioYAML))
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, "image/png", ct)
	require.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	status, _, _ = env.do(t, fasthttp.MethodPost, "/v1/render?highlight=zzz", []byte(scenarioYAML))
	require.Equal(t, fasthttp.StatusBadRequest, status)

	status, body, _ = env.do(t, fasthttp.MethodPost, "/v1/encode", []byte(scenarioYAML))
	require.Equal(t, fasthttp.StatusOK, status)
	enc := decodeJSON[evaldto.EncodeResponse](t, body)
	require.Len(t, enc.Global, 8)
	require.Equal(t, 8+2*20*12, enc.TotalDim)
	require.True(t, enc.Player1Mask[0])
	require.False(t, enc.Player1Mask[1])
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, fasthttp.StatusInternalServerError, statusFor(evaldto.CodeInternal))
	require.Equal(t, fasthttp.StatusInternalServerError, statusFor("unknown"))
	de := evalpresenter.ToDomainError(errors.New("boom"))
	require.True(t, de.Retryable)
}
