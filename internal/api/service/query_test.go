package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/ingest"
	"go.uber.org/zap"
)

type fakeAgentRepo struct {
	agents map[string]*domain.Agent
}

func (f *fakeAgentRepo) ListAgents(_ context.Context, ownerID string) ([]*domain.Agent, error) {
	var out []*domain.Agent
	for _, a := range f.agents {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAgentRepo) GetAgent(_ context.Context, id, ownerID string) (*domain.Agent, error) {
	a, ok := f.agents[id]
	if !ok || a.OwnerID != ownerID {
		return nil, nil
	}
	return a, nil
}

func (f *fakeAgentRepo) UpdateAgent(_ context.Context, id, ownerID string, patch domain.AgentPatch) (*domain.Agent, error) {
	a, ok := f.agents[id]
	if !ok || a.OwnerID != ownerID {
		return nil, nil
	}
	patch.Apply(a)
	return a, nil
}

type fakeQueryGateway struct {
	gotPayload ingest.QueryPayload
	gotToken   string
	response   *domain.QueryResponse
	err        error
}

func (f *fakeQueryGateway) Query(_ context.Context, token, _ string, payload ingest.QueryPayload) (*domain.QueryResponse, error) {
	f.gotToken = token
	f.gotPayload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newQueryService(gw *fakeQueryGateway) *QueryService {
	repo := &fakeAgentRepo{agents: map[string]*domain.Agent{
		"a-1": {ID: "a-1", OwnerID: "user-1"},
	}}
	return NewQueryService(repo, gw, zap.NewNop())
}

func userMsg(content string) domain.ChatMessage {
	return domain.ChatMessage{Role: "user", Content: content}
}

func TestQuery_ValidatesMessages(t *testing.T) {
	t.Parallel()

	svc := newQueryService(&fakeQueryGateway{})

	t.Run("empty messages", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Query(context.Background(), "user-1", "tok", "a-1", domain.QueryRequest{})

		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, domain.KindBadRequest, derr.Kind)
		assert.Equal(t, "Messages are required", derr.Message)
	})

	t.Run("last message not from user", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Query(context.Background(), "user-1", "tok", "a-1", domain.QueryRequest{
			Messages: []domain.ChatMessage{userMsg("hi"), {Role: "assistant", Content: "hello"}},
		})

		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "Last message must be from user", derr.Message)
	})
}

func TestQuery_DefaultsAndTokenForwarding(t *testing.T) {
	t.Parallel()

	gw := &fakeQueryGateway{response: &domain.QueryResponse{Answer: "42"}}
	svc := newQueryService(gw)

	res, err := svc.Query(context.Background(), "user-1", "user-bearer", "a-1", domain.QueryRequest{
		Messages: []domain.ChatMessage{userMsg("question")},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", res.Answer)

	// top_k по умолчанию, опциональные поля не заполнены
	assert.Equal(t, domain.DefaultTopK, gw.gotPayload.TopK)
	assert.Nil(t, gw.gotPayload.Temperature)
	assert.Nil(t, gw.gotPayload.MaxTokens)
	assert.Empty(t, gw.gotPayload.SystemPrompt)
	assert.Equal(t, domain.PromptModeMerge, gw.gotPayload.SystemPromptMode)

	// Пользовательский bearer уходит апстрим без изменений
	assert.Equal(t, "user-bearer", gw.gotToken)
}

func TestQuery_SystemPromptNormalization(t *testing.T) {
	t.Parallel()

	t.Run("whitespace-only prompt is dropped", func(t *testing.T) {
		t.Parallel()
		gw := &fakeQueryGateway{response: &domain.QueryResponse{}}
		svc := newQueryService(gw)

		_, err := svc.Query(context.Background(), "user-1", "tok", "a-1", domain.QueryRequest{
			Messages:     []domain.ChatMessage{userMsg("hi")},
			SystemPrompt: "   \n\t ",
		})
		require.NoError(t, err)
		assert.Empty(t, gw.gotPayload.SystemPrompt)
		assert.Equal(t, domain.PromptModeMerge, gw.gotPayload.SystemPromptMode)
	})

	t.Run("prompt is trimmed, explicit mode preserved", func(t *testing.T) {
		t.Parallel()
		gw := &fakeQueryGateway{response: &domain.QueryResponse{}}
		svc := newQueryService(gw)

		_, err := svc.Query(context.Background(), "user-1", "tok", "a-1", domain.QueryRequest{
			Messages:         []domain.ChatMessage{userMsg("hi")},
			SystemPrompt:     "  be terse  ",
			SystemPromptMode: domain.PromptModeReplace,
		})
		require.NoError(t, err)
		assert.Equal(t, "be terse", gw.gotPayload.SystemPrompt)
		assert.Equal(t, domain.PromptModeReplace, gw.gotPayload.SystemPromptMode)
	})
}

func TestQuery_ForeignAgentIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newQueryService(&fakeQueryGateway{})

	_, err := svc.Query(context.Background(), "user-2", "tok", "a-1", domain.QueryRequest{
		Messages: []domain.ChatMessage{userMsg("hi")},
	})

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.KindNotFound, derr.Kind)
}

func TestQuery_UpstreamErrorPassedThrough(t *testing.T) {
	t.Parallel()

	upstream := &domain.UpstreamError{Status: 503, Message: "model overloaded"}
	svc := newQueryService(&fakeQueryGateway{err: upstream})

	_, err := svc.Query(context.Background(), "user-1", "tok", "a-1", domain.QueryRequest{
		Messages: []domain.ChatMessage{userMsg("hi")},
	})

	var uerr *domain.UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, 503, uerr.Status)
	assert.Equal(t, 503, domain.HTTPStatus(err))
}

func TestQuery_SourceContentNormalization(t *testing.T) {
	t.Parallel()

	gw := &fakeQueryGateway{response: &domain.QueryResponse{
		Answer: "ok",
		Sources: []domain.RetrievedSource{
			{Preview: "p", PlainPreview: "pp", HTML: "<b>h</b>"},
			{PlainPreview: "pp", HTML: "<b>h</b>"},
			{HTML: "<b>h</b>"},
			{},
		},
	}}
	svc := newQueryService(gw)

	res, err := svc.Query(context.Background(), "user-1", "tok", "a-1", domain.QueryRequest{
		Messages: []domain.ChatMessage{userMsg("hi")},
	})
	require.NoError(t, err)

	// Приоритет: preview > plain_preview > html > пусто
	require.Len(t, res.Sources, 4)
	assert.Equal(t, "p", res.Sources[0].Content)
	assert.Equal(t, "pp", res.Sources[1].Content)
	assert.Equal(t, "<b>h</b>", res.Sources[2].Content)
	assert.Equal(t, "", res.Sources[3].Content)
}
