package httpapi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/park285/primordia/internal/adapter/evalpresenter"
	"github.com/park285/primordia/internal/domain"
	"github.com/park285/primordia/internal/openingbook"
	"github.com/park285/primordia/internal/render"
	"github.com/park285/primordia/internal/scenario"
	"github.com/park285/primordia/pkg/evaldto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	st := s.health.Check(rctx)
	s.writeJSON(ctx, fasthttp.StatusOK, evaldto.HealthResponse{
		Status:     st.Status,
		Realm:      st.Realm,
		Timestamp:  st.Timestamp,
		Components: st.Components,
	})
}

// parseState reads a scenario document from the body. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) parseState(ctx *fasthttp.RequestCtx) (*domain.GameState, bool) {
	state, err := scenario.Parse(ctx.PostBody())
	if err != nil {
		s.fail(ctx, err)
		return nil, false
	}
	return state, true
}

func (s *Server) handleEvaluate(ctx *fasthttp.RequestCtx) {
	state, ok := s.parseState(ctx)
	if !ok {
		return
	}
	ev, err := s.svc.Evaluate(state)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto := evalpresenter.ToDTOEvaluation(ev)
	report, err := s.formatter.Evaluation(state, dto)
	if err != nil {
		s.logger.Warn("evaluation report failed", zap.Error(err))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, evaldto.EvaluateResponse{
		StateID:    state.ID.String(),
		Evaluation: dto,
		Report:     report,
	})
}

func (s *Server) handleSaveState(ctx *fasthttp.RequestCtx) {
	state, ok := s.parseState(ctx)
	if !ok {
		return
	}
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	ev, err := s.svc.SaveSnapshot(rctx, state)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, evaldto.SaveStateResponse{
		StateID:    state.ID.String(),
		Evaluation: evalpresenter.ToDTOEvaluation(ev),
	})
}

func (s *Server) handleStateEvaluation(ctx *fasthttp.RequestCtx, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.fail(ctx, &domain.ValidationError{Field: "state_id", Value: rawID, Reason: "must be a UUID"})
		return
	}
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	ev, err := s.svc.EvaluateSnapshot(rctx, id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto := evalpresenter.ToDTOEvaluation(ev)
	report, err := s.formatter.Evaluation(nil, dto)
	if err != nil {
		s.logger.Warn("evaluation report failed", zap.Error(err))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, evaldto.EvaluateResponse{StateID: id.String(), Evaluation: dto, Report: report})
}

func (s *Server) handleDeleteState(ctx *fasthttp.RequestCtx, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.fail(ctx, &domain.ValidationError{Field: "state_id", Value: rawID, Reason: "must be a UUID"})
		return
	}
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	if err := s.svc.DeleteSnapshot(rctx, id); err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// handleRender accepts title, highlight and hide_last_move query arguments.
func (s *Server) handleRender(ctx *fasthttp.RequestCtx) {
	state, ok := s.parseState(ctx)
	if !ok {
		return
	}
	args := ctx.QueryArgs()
	opts := render.Options{
		Title:        string(args.Peek("title")),
		HideLastMove: args.GetBool("hide_last_move"),
	}
	if raw := strings.TrimSpace(string(args.Peek("highlight"))); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.fail(ctx, &domain.ValidationError{Field: "highlight", Value: raw, Reason: "must be a UUID"})
			return
		}
		opts.Highlight = &id
	}
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	png, err := s.svc.Render(rctx, state, opts)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentTypePNG)
	ctx.SetBody(png)
}

func (s *Server) handleEncode(ctx *fasthttp.RequestCtx) {
	state, ok := s.parseState(ctx)
	if !ok {
		return
	}
	enc, err := s.svc.Encode(state)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, evalpresenter.ToDTOEncoded(state.ID.String(), s.svc.Encoder(), enc))
}

func (s *Server) handleRecordGame(ctx *fasthttp.RequestCtx) {
	var req evaldto.RecordGameRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.fail(ctx, evaldto.DomainError{Code: evaldto.CodeBadRequest, Message: err.Error()})
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(req.StateID))
	if err != nil {
		s.fail(ctx, &domain.ValidationError{Field: "state_id", Value: req.StateID, Reason: "must be a UUID"})
		return
	}
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	game, err := s.svc.RecordResult(rctx, id, req.Winner)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto := evalpresenter.ToDTOGame(game)
	report, err := s.formatter.Recorded(dto)
	if err != nil {
		s.logger.Warn("recorded report failed", zap.Error(err))
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, evaldto.RecordGameResponse{Game: dto, Report: report})
}

func (s *Server) handleMatchupStats(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	faction := strings.TrimSpace(string(args.Peek("faction")))
	opponent := strings.TrimSpace(string(args.Peek("opponent")))
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	stats, err := s.svc.MatchupStats(rctx, faction, opponent)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto := evalpresenter.ToDTOStats(stats)
	report, err := s.formatter.MatchupStats(faction, opponent, dto)
	if err != nil {
		s.logger.Warn("matchup report failed", zap.Error(err))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, evaldto.MatchupStatsResponse{Stats: dto, Report: report})
}

func (s *Server) handleHistory(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	q := openingbook.HistoryQuery{
		Faction:  strings.TrimSpace(string(args.Peek("faction"))),
		Opponent: strings.TrimSpace(string(args.Peek("opponent"))),
		ListHash: strings.TrimSpace(string(args.Peek("list_hash"))),
	}
	if raw := strings.TrimSpace(string(args.Peek("limit"))); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.fail(ctx, &domain.ValidationError{Field: "limit", Value: raw, Reason: "must be a non-negative integer"})
			return
		}
		q.Limit = limit
	}
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	games, err := s.svc.History(rctx, q)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto := evalpresenter.ToDTOHistory(games)
	report, err := s.formatter.History(dto)
	if err != nil {
		s.logger.Warn("history report failed", zap.Error(err))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, evaldto.HistoryResponse{Games: dto, Report: report})
}

func (s *Server) handleBook(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	rec, err := s.svc.BookSetup(rctx,
		string(args.Peek("faction")),
		string(args.Peek("list_hash")),
		string(args.Peek("opponent")),
	)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto := evalpresenter.ToDTOBookSetup(rec)
	report, err := s.formatter.BookSetup(dto)
	if err != nil {
		s.logger.Warn("book report failed", zap.Error(err))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, evaldto.BookSetupResponse{Setup: dto, Report: report})
}

func (s *Server) handleDeployment(ctx *fasthttp.RequestCtx) {
	var req evaldto.DeploymentRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.fail(ctx, evaldto.DomainError{Code: evaldto.CodeBadRequest, Message: err.Error()})
		return
	}
	rctx, cancel := s.requestContext(ctx)
	defer cancel()
	stored, err := s.svc.RecordDeployment(rctx, evalpresenter.FromDTODeployment(req))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	req.ID = stored.ID
	s.writeJSON(ctx, fasthttp.StatusCreated, req)
}
