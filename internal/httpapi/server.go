package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/park285/primordia/internal/adapter/evalpresenter"
	"github.com/park285/primordia/internal/health"
	"github.com/park285/primordia/internal/service/analysis"
	"github.com/park285/primordia/pkg/evaldto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxRequestBodySize    = 4 << 20
	contentTypeJSON       = "application/json"
	contentTypePNG        = "image/png"
)

type Config struct {
	RequestTimeout time.Duration
}

// Server exposes the analysis service over HTTP.
type Server struct {
	svc       *analysis.Service
	formatter *evalpresenter.Formatter
	health    *health.Checker
	cfg       Config
	logger    *zap.Logger
	srv       *fasthttp.Server
}

func NewServer(svc *analysis.Service, formatter *evalpresenter.Formatter, checker *health.Checker, cfg Config, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("analysis service is required")
	}
	if formatter == nil {
		return nil, fmt.Errorf("formatter is required")
	}
	if checker == nil {
		checker = health.NewChecker()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, formatter: formatter, health: checker, cfg: cfg, logger: logger}
	s.srv = &fasthttp.Server{
		Handler:               s.Handler(),
		Name:                  "primordia",
		ReadTimeout:           cfg.RequestTimeout,
		WriteTimeout:          cfg.RequestTimeout,
		MaxRequestBodySize:    maxRequestBodySize,
		NoDefaultServerHeader: true,
	}
	return s, nil
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// Shutdown stops accepting connections and waits for open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler routes requests and writes an access log line for each.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		s.route(ctx)
		s.logger.Debug("http request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := strings.TrimRight(string(ctx.Path()), "/")
	method := string(ctx.Method())

	if id, ok := stateEvaluationID(path); ok {
		s.only(ctx, method, fasthttp.MethodGet, func() { s.handleStateEvaluation(ctx, id) })
		return
	}
	if id, ok := stateID(path); ok {
		s.only(ctx, method, fasthttp.MethodDelete, func() { s.handleDeleteState(ctx, id) })
		return
	}

	switch path {
	case "/healthz":
		s.only(ctx, method, fasthttp.MethodGet, func() { s.handleHealth(ctx) })
	case "/v1/evaluate":
		s.only(ctx, method, fasthttp.MethodPost, func() { s.handleEvaluate(ctx) })
	case "/v1/states":
		s.only(ctx, method, fasthttp.MethodPost, func() { s.handleSaveState(ctx) })
	case "/v1/render":
		s.only(ctx, method, fasthttp.MethodPost, func() { s.handleRender(ctx) })
	case "/v1/encode":
		s.only(ctx, method, fasthttp.MethodPost, func() { s.handleEncode(ctx) })
	case "/v1/games":
		s.only(ctx, method, fasthttp.MethodPost, func() { s.handleRecordGame(ctx) })
	case "/v1/matchups/stats":
		s.only(ctx, method, fasthttp.MethodGet, func() { s.handleMatchupStats(ctx) })
	case "/v1/matchups/games":
		s.only(ctx, method, fasthttp.MethodGet, func() { s.handleHistory(ctx) })
	case "/v1/book":
		s.only(ctx, method, fasthttp.MethodGet, func() { s.handleBook(ctx) })
	case "/v1/deployments":
		s.only(ctx, method, fasthttp.MethodPost, func() { s.handleDeployment(ctx) })
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, evaldto.DomainError{Code: evaldto.CodeNotFound, Message: "route " + path})
	}
}

func (s *Server) only(ctx *fasthttp.RequestCtx, method, want string, h func()) {
	if method != want {
		ctx.Response.Header.Set(fasthttp.HeaderAllow, want)
		s.writeError(ctx, fasthttp.StatusMethodNotAllowed, evaldto.DomainError{Code: evaldto.CodeBadRequest, Message: "method " + method})
		return
	}
	h()
}

// stateEvaluationID matches /v1/states/{id}/evaluation.
func stateEvaluationID(path string) (string, bool) {
	const prefix, suffix = "/v1/states/", "/evaluation"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// stateID matches /v1/states/{id}.
func stateID(path string) (string, bool) {
	const prefix = "/v1/states/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (s *Server) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(body)
}

// fail maps a service error to its status and a catalogue message.
func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	de := evalpresenter.ToDomainError(err)
	status := statusFor(de.Code)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("request failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	s.writeError(ctx, status, de)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, de evaldto.DomainError) {
	de.Message = s.formatter.Error(de)
	s.writeJSON(ctx, status, evaldto.ErrorResponse{Error: de})
}

func statusFor(code string) int {
	switch code {
	case evaldto.CodeValidation, evaldto.CodeBadRequest:
		return fasthttp.StatusBadRequest
	case evaldto.CodeInvalidState:
		return fasthttp.StatusUnprocessableEntity
	case evaldto.CodeNotFound:
		return fasthttp.StatusNotFound
	case evaldto.CodeUnavailable:
		return fasthttp.StatusServiceUnavailable
	default:
		return fasthttp.StatusInternalServerError
	}
}
