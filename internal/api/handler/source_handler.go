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

type SourceHandler struct {
	sources *service.SourceService
	logger  *zap.Logger
}

func NewSourceHandler(sources *service.SourceService, logger *zap.Logger) *SourceHandler {
	return &SourceHandler{sources: sources, logger: logger.Named("source-handler")}
}

// List возвращает источники знаний агента, новые первыми.
// GET /v1/agents/{id}/sources
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.sources.List(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sources": list}, h.logger)
}

// Delete удаляет перечисленные источники агента.
// DELETE /v1/agents/{id}/sources, тело {"source_ids": [...]}
func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceIDs []string `json:"source_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, domain.BadRequest("Invalid request body"), h.logger)
		return
	}

	report, err := h.sources.Delete(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), body.SourceIDs)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, report, h.logger)
}

// Cleanup зачищает незавершённые источники (upload_pending, failed).
// POST /v1/agents/{id}/sources/cleanup
func (h *SourceHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	report, err := h.sources.Cleanup(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, report, h.logger)
}
