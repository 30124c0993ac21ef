package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/ragbase/internal/api/service"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra/auth"
	"go.uber.org/zap"
)

type stubAgentRepo struct {
	agents map[string]*domain.Agent
}

func (s *stubAgentRepo) ListAgents(_ context.Context, ownerID string) ([]*domain.Agent, error) {
	out := []*domain.Agent{}
	for _, a := range s.agents {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAgentRepo) GetAgent(_ context.Context, id, ownerID string) (*domain.Agent, error) {
	a, ok := s.agents[id]
	if !ok || a.OwnerID != ownerID {
		return nil, nil
	}
	return a, nil
}

func (s *stubAgentRepo) UpdateAgent(_ context.Context, id, ownerID string, patch domain.AgentPatch) (*domain.Agent, error) {
	a, ok := s.agents[id]
	if !ok || a.OwnerID != ownerID {
		return nil, nil
	}
	patch.Apply(a)
	return a, nil
}

func newAgentRouter() http.Handler {
	repo := &stubAgentRepo{agents: map[string]*domain.Agent{
		"a-1": {ID: "a-1", OwnerID: "user-1", Name: "Bot", Model: "gpt-4o-mini", Temperature: 0.2},
	}}
	h := NewAgentHandler(service.NewAgentService(repo, zap.NewNop()), nil, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/v1/agents/{id}", h.Get)
	r.Patch("/v1/agents/{id}", h.Patch)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), "user-1", "test-bearer"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAgentPatch_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"invalid json", `{not json`, http.StatusBadRequest, "Invalid request body"},
		{"empty patch", `{}`, http.StatusBadRequest, "No fields to update"},
		{"temperature out of range", `{"temperature": 2.5}`, http.StatusBadRequest, "Temperature must be a number between 0 and 1"},
		{"empty model", `{"model": ""}`, http.StatusBadRequest, "Model must be a non-empty string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(t, newAgentRouter(), http.MethodPatch, "/v1/agents/a-1", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.wantError)
		})
	}
}

func TestAgentPatch_AppliesFields(t *testing.T) {
	t.Parallel()

	w := doRequest(t, newAgentRouter(), http.MethodPatch, "/v1/agents/a-1",
		`{"name": "Renamed", "temperature": 0.9}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Renamed"`)
	assert.Contains(t, w.Body.String(), `0.9`)
}

func TestAgentGet_ForeignAgentIs404(t *testing.T) {
	t.Parallel()

	router := newAgentRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/agents/a-1", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "intruder", "tok"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Чужой и несуществующий агент неразличимы в ответе
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Chat not found or access denied")
}
