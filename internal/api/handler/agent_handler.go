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

// AgentHandler — список/карточка/настройки агентов плюс коммит знаний.
type AgentHandler struct {
	agents *service.AgentService
	commit *service.CommitService
	logger *zap.Logger
}

func NewAgentHandler(agents *service.AgentService, commit *service.CommitService, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, commit: commit, logger: logger.Named("agent-handler")}
}

// List возвращает агентов текущего пользователя.
// GET /v1/agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, agents, h.logger)
}

// Get возвращает карточку агента.
// GET /v1/agents/{id}
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agents.Get(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, agent, h.logger)
}

// Patch применяет частичное обновление настроек агента.
// PATCH /v1/agents/{id}
func (h *AgentHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch domain.AgentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, domain.BadRequest("Invalid request body"), h.logger)
		return
	}

	agent, err := h.agents.Patch(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, agent, h.logger)
}

// Commit запускает батч-коммит знаний: создание агента либо retrain.
// POST /v1/agents
func (h *AgentHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req domain.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.BadRequest("Invalid request body"), h.logger)
		return
	}

	ctx := r.Context()
	result, err := h.commit.Commit(ctx, auth.UserID(ctx), auth.BearerToken(ctx), req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	status := http.StatusOK
	if req.AgentID == "" {
		status = http.StatusCreated
	}
	respondJSON(w, status, result, h.logger)
}
