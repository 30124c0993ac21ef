package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/ragbase/internal/domain"
	"go.uber.org/zap"
)

type fakeSourceRepo struct {
	agents  map[string]*domain.Agent
	sources map[string]*domain.KnowledgeSource

	failDeleteIDs map[string]error // пер-элементные сбои DeleteSource
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{
		agents:        map[string]*domain.Agent{"a-1": {ID: "a-1", OwnerID: "user-1"}},
		sources:       map[string]*domain.KnowledgeSource{},
		failDeleteIDs: map[string]error{},
	}
}

func (f *fakeSourceRepo) GetAgent(_ context.Context, id, ownerID string) (*domain.Agent, error) {
	a, ok := f.agents[id]
	if !ok || a.OwnerID != ownerID {
		return nil, nil
	}
	return a, nil
}

func (f *fakeSourceRepo) ListSources(_ context.Context, agentID string) ([]*domain.KnowledgeSource, error) {
	var out []*domain.KnowledgeSource
	for _, s := range f.sources {
		if s.AgentID == agentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSourceRepo) ListSourcesByStatuses(_ context.Context, agentID string, statuses ...domain.SourceStatus) ([]*domain.KnowledgeSource, error) {
	var out []*domain.KnowledgeSource
	for _, s := range f.sources {
		if s.AgentID != agentID {
			continue
		}
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSourceRepo) DeleteSources(_ context.Context, agentID string, ids []string) ([]*domain.KnowledgeSource, error) {
	var deleted []*domain.KnowledgeSource
	for _, id := range ids {
		s, ok := f.sources[id]
		if !ok || s.AgentID != agentID {
			continue
		}
		deleted = append(deleted, s)
		delete(f.sources, id)
	}
	return deleted, nil
}

func (f *fakeSourceRepo) DeleteSource(_ context.Context, agentID, sourceID string) error {
	if err := f.failDeleteIDs[sourceID]; err != nil {
		return err
	}
	s, ok := f.sources[sourceID]
	if ok && s.AgentID == agentID {
		delete(f.sources, sourceID)
	}
	return nil
}

type fakeRemover struct {
	removed []string
	fail    error
}

func (f *fakeRemover) Remove(_ context.Context, key string) error {
	if f.fail != nil {
		return f.fail
	}
	f.removed = append(f.removed, key)
	return nil
}

func newSourceService(repo *fakeSourceRepo, remover *fakeRemover) *SourceService {
	return NewSourceService(repo, remover, nil, zap.NewNop())
}

func TestDelete_ForeignIDsSilentlyIgnored(t *testing.T) {
	t.Parallel()

	repo := newFakeSourceRepo()
	repo.sources["mine"] = &domain.KnowledgeSource{ID: "mine", AgentID: "a-1", FileURL: "users/u/mine.pdf"}
	repo.sources["foreign"] = &domain.KnowledgeSource{ID: "foreign", AgentID: "other-agent"}
	remover := &fakeRemover{}
	svc := newSourceService(repo, remover)

	report, err := svc.Delete(context.Background(), "user-1", "a-1", []string{"mine", "foreign", "ghost"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.DeletedCount)
	require.Len(t, report.DeletedSources, 1)
	assert.Equal(t, "mine", report.DeletedSources[0].ID)
	assert.Equal(t, []string{"users/u/mine.pdf"}, remover.removed)

	// Чужой источник не тронут
	assert.Contains(t, repo.sources, "foreign")
}

func TestDelete_ZeroMatchesIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newSourceService(newFakeSourceRepo(), &fakeRemover{})

	_, err := svc.Delete(context.Background(), "user-1", "a-1", []string{"ghost-1", "ghost-2"})

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.KindNotFound, derr.Kind)
}

func TestDelete_EmptyBatchIsBadRequest(t *testing.T) {
	t.Parallel()

	svc := newSourceService(newFakeSourceRepo(), &fakeRemover{})

	_, err := svc.Delete(context.Background(), "user-1", "a-1", nil)

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.KindBadRequest, derr.Kind)
}

func TestDelete_AgentOwnershipFoldedToNotFound(t *testing.T) {
	t.Parallel()

	repo := newFakeSourceRepo()
	repo.agents["a-1"].OwnerID = "someone-else"
	svc := newSourceService(repo, &fakeRemover{})

	_, err := svc.Delete(context.Background(), "user-1", "a-1", []string{"x"})

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.KindNotFound, derr.Kind)
}

func TestDelete_StorageFailureDoesNotUndoRowDelete(t *testing.T) {
	t.Parallel()

	repo := newFakeSourceRepo()
	repo.sources["s-1"] = &domain.KnowledgeSource{ID: "s-1", AgentID: "a-1", FileURL: "users/u/f.pdf"}
	svc := newSourceService(repo, &fakeRemover{fail: errors.New("gcs down")})

	report, err := svc.Delete(context.Background(), "user-1", "a-1", []string{"s-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.DeletedCount)
	assert.NotContains(t, repo.sources, "s-1")
}

func TestCleanup_PurgesStaleAndIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeSourceRepo()
	repo.sources["p-1"] = &domain.KnowledgeSource{ID: "p-1", AgentID: "a-1", Status: domain.StatusUploadPending}
	repo.sources["f-1"] = &domain.KnowledgeSource{ID: "f-1", AgentID: "a-1", Status: domain.StatusFailed, FileURL: "users/u/f.pdf"}
	repo.sources["ok-1"] = &domain.KnowledgeSource{ID: "ok-1", AgentID: "a-1", Status: domain.StatusActive}
	remover := &fakeRemover{}
	svc := newSourceService(repo, remover)

	report, err := svc.Cleanup(context.Background(), "user-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.PurgedCount)
	assert.Contains(t, repo.sources, "ok-1", "active sources must survive cleanup")

	// Повторный проход — no-op с нулевым счётчиком
	report, err = svc.Cleanup(context.Background(), "user-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.PurgedCount)
}

func TestCleanup_ContinuesPastPerSourceFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeSourceRepo()
	repo.sources["bad"] = &domain.KnowledgeSource{ID: "bad", AgentID: "a-1", Status: domain.StatusFailed}
	repo.sources["good"] = &domain.KnowledgeSource{ID: "good", AgentID: "a-1", Status: domain.StatusFailed}
	repo.failDeleteIDs["bad"] = errors.New("db hiccup")
	svc := newSourceService(repo, &fakeRemover{})

	report, err := svc.Cleanup(context.Background(), "user-1", "a-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.PurgedCount)
	assert.Equal(t, []string{"bad"}, report.Failed)
	assert.NotContains(t, repo.sources, "good")
}
