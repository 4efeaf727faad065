package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/primordia/pkg/evaldto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, h fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	return NewClient("http://primordia.test/", WithHTTPClient(hc), WithTimeout(2*time.Second))
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, _ := json.Marshal(v)
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func TestEvaluatePostsDocument(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "/v1/evaluate", string(ctx.Path()))
		assert.Equal(t, "turn: 2\n", string(ctx.PostBody()))
		writeJSON(ctx, fasthttp.StatusOK, evaldto.EvaluateResponse{StateID: "abc", Evaluation: evaldto.Evaluation{PlayerAdvantage: 0.25}})
	})
	got, err := c.Evaluate(context.Background(), []byte("turn: 2\n"))
	require.NoError(t, err)
	require.Equal(t, "abc", got.StateID)
	require.Equal(t, 0.25, got.Evaluation.PlayerAdvantage)
}

func TestDomainErrorsAreReturnedAsIs(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		writeJSON(ctx, fasthttp.StatusServiceUnavailable, evaldto.ErrorResponse{Error: evaldto.DomainError{Code: evaldto.CodeUnavailable, Message: "Temporarily unavailable: state snapshots."}})
	})
	_, err := c.StateEvaluation(context.Background(), "id")
	var de evaldto.DomainError
	require.True(t, errors.As(err, &de))
	require.Equal(t, evaldto.CodeUnavailable, de.Code)
	require.Equal(t, int32(1), calls.Load(), "non-retryable errors must not be retried")
}

func TestRetryableGetIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			writeJSON(ctx, fasthttp.StatusInternalServerError, evaldto.ErrorResponse{Error: evaldto.DomainError{Code: evaldto.CodeInternal, Retryable: true}})
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, evaldto.HealthResponse{Status: "operational", Realm: "primordia"})
	})
	got, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "operational", got.Status)
	require.Equal(t, int32(2), calls.Load())
}

func TestPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
		ctx.SetBodyString("upstream down")
	})
	_, err := c.RecordGame(context.Background(), evaldto.RecordGameRequest{StateID: "x", Winner: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
	require.Equal(t, int32(1), calls.Load())
}

func TestRenderReturnsRawBytes(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "Demo", string(ctx.QueryArgs().Peek("title")))
		ctx.SetContentType("image/png")
		ctx.SetBody([]byte("\x89PNG-data"))
	})
	png, err := c.Render(context.Background(), []byte("turn: 1\n"), "Demo")
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG-data"), png)
}

func TestBookSetupQuery(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		args := ctx.QueryArgs()
		assert.Equal(t, "Space Marines", string(args.Peek("faction")))
		assert.Equal(t, "Orks", string(args.Peek("opponent")))
		assert.False(t, args.Has("list_hash"))
		writeJSON(ctx, fasthttp.StatusOK, evaldto.BookSetupResponse{Setup: evaldto.BookSetup{Name: "Standard Deployment"}})
	})
	got, err := c.BookSetup(context.Background(), "Space Marines", "", "Orks")
	require.NoError(t, err)
	require.Equal(t, "Standard Deployment", got.Setup.Name)
}

func TestBackoffDuration(t *testing.T) {
	require.Equal(t, 100*time.Millisecond, backoffDuration(0))
	require.Equal(t, 400*time.Millisecond, backoffDuration(3))
	require.Equal(t, backoffDuration(6), backoffDuration(9))
}
