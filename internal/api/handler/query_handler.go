package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/ragbase/internal/api/service"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra/auth"
	"go.uber.org/zap"
)

type QueryHandler struct {
	query  *service.QueryService
	logger *zap.Logger
}

func NewQueryHandler(query *service.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{query: query, logger: logger.Named("query-handler")}
}

// Query проксирует диалоговый запрос к RAG-сервису.
// POST /v1/agents/{id}/query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.BadRequest("Invalid request body"), h.logger)
		return
	}

	ctx := r.Context()
	res, err := h.query.Query(ctx, auth.UserID(ctx), auth.BearerToken(ctx), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, res, h.logger)
}
