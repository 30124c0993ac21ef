package service

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/lifecycle"
	"go.uber.org/zap"
)

// SourceRepository — операции удаления и выборки источников.
type SourceRepository interface {
	GetAgent(ctx context.Context, id, ownerID string) (*domain.Agent, error)
	ListSources(ctx context.Context, agentID string) ([]*domain.KnowledgeSource, error)
	ListSourcesByStatuses(ctx context.Context, agentID string, statuses ...domain.SourceStatus) ([]*domain.KnowledgeSource, error)
	DeleteSources(ctx context.Context, agentID string, ids []string) ([]*domain.KnowledgeSource, error)
	DeleteSource(ctx context.Context, agentID, sourceID string) error
}

// ObjectRemover удаляет объект из хранилища. Отсутствие объекта —
// не ошибка: источники типа text байтов в хранилище не имеют.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}

// SourceService обслуживает чтение, удаление и зачистку источников.
// Порядок удаления всегда: сначала строки в базе, потом объекты в
// хранилище. Осиротевший объект дешевле осиротевшей строки.
type SourceService struct {
	repo     SourceRepository
	store    ObjectRemover
	recorder *lifecycle.Recorder
	logger   *zap.Logger
}

func NewSourceService(repo SourceRepository, store ObjectRemover, recorder *lifecycle.Recorder, logger *zap.Logger) *SourceService {
	return &SourceService{
		repo:     repo,
		store:    store,
		recorder: recorder,
		logger:   logger.Named("source-service"),
	}
}

// List отдаёт все источники агента, новые первыми.
func (s *SourceService) List(ctx context.Context, ownerID, agentID string) ([]*domain.KnowledgeSource, error) {
	agent, err := s.repo.GetAgent(ctx, agentID, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to load agent", err)
	}
	if agent == nil {
		return nil, domain.NotFound("Chat not found or access denied")
	}
	sources, err := s.repo.ListSources(ctx, agentID)
	if err != nil {
		return nil, domain.Internal("failed to list sources", err)
	}
	return sources, nil
}

// DeleteReport — итог удаления батча: счётчик и снапшот удалённых
// строк. Чужие id молча игнорируются и в отчёт не попадают.
type DeleteReport struct {
	DeletedCount   int                       `json:"deleted_count"`
	DeletedSources []*domain.KnowledgeSource `json:"deleted_sources"`
}

// Delete удаляет перечисленные источники. Каскад чанков выполняет
// база (FK ON DELETE CASCADE); объекты в хранилище зачищаются после,
// best-effort: сбой удаления объекта логируется, но не откатывает
// удаление строки. Повторное удаление уже удалённого id даёт вклад 0,
// но ноль совпадений по всему батчу — NotFound.
func (s *SourceService) Delete(ctx context.Context, ownerID, agentID string, ids []string) (*DeleteReport, error) {
	if len(ids) == 0 {
		return nil, domain.BadRequest("source_ids are required")
	}

	agent, err := s.repo.GetAgent(ctx, agentID, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to load agent", err)
	}
	if agent == nil {
		return nil, domain.NotFound("Chat not found or access denied")
	}

	started := time.Now()
	deleted, err := s.repo.DeleteSources(ctx, agentID, ids)
	if err != nil {
		s.record(ctx, agentID, "", lifecycle.ActionDelete, err, started)
		return nil, domain.Internal("failed to delete sources", err)
	}
	if len(deleted) == 0 {
		return nil, domain.NotFound("No sources found to delete")
	}

	for _, src := range deleted {
		s.record(ctx, agentID, src.ID, lifecycle.ActionDelete, nil, started)

		if src.FileURL != "" {
			if err := s.store.Remove(ctx, src.FileURL); err != nil {
				s.logger.Warn("failed to remove object after source delete",
					zap.String("source_id", src.ID),
					zap.String("key", src.FileURL),
					zap.Error(err))
			}
		}
	}
	return &DeleteReport{DeletedCount: len(deleted), DeletedSources: deleted}, nil
}

// CleanupReport — итог зачистки незавершённых источников агента.
type CleanupReport struct {
	PurgedCount int      `json:"purged_count"`
	Failed      []string `json:"failed,omitempty"`
}

// Cleanup убирает источники, застрявшие в upload_pending или failed.
// Удаление per-source, best-effort: сбой на одном источнике не
// останавливает остальные. Повторный вызов на чистом агенте — no-op
// с нулевым счётчиком.
func (s *SourceService) Cleanup(ctx context.Context, ownerID, agentID string) (*CleanupReport, error) {
	agent, err := s.repo.GetAgent(ctx, agentID, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to load agent", err)
	}
	if agent == nil {
		return nil, domain.NotFound("Chat not found or access denied")
	}

	stale, err := s.repo.ListSourcesByStatuses(ctx, agentID,
		domain.StatusUploadPending, domain.StatusFailed)
	if err != nil {
		return nil, domain.Internal("failed to list stale sources", err)
	}

	report := &CleanupReport{}
	for _, src := range stale {
		started := time.Now()
		if err := s.repo.DeleteSource(ctx, agentID, src.ID); err != nil {
			s.record(ctx, agentID, src.ID, lifecycle.ActionCleanup, err, started)
			s.logger.Warn("failed to purge stale source",
				zap.String("source_id", src.ID), zap.Error(err))
			report.Failed = append(report.Failed, src.ID)
			continue
		}
		s.record(ctx, agentID, src.ID, lifecycle.ActionCleanup, nil, started)
		report.PurgedCount++

		if src.FileURL != "" {
			if err := s.store.Remove(ctx, src.FileURL); err != nil {
				s.logger.Warn("failed to remove object during cleanup",
					zap.String("source_id", src.ID), zap.Error(err))
			}
		}
	}
	return report, nil
}

func (s *SourceService) record(ctx context.Context, agentID, sourceID, action string, err error, started time.Time) {
	if s.recorder == nil {
		return
	}
	outcome, detail := lifecycle.OutcomeOK, ""
	if err != nil {
		outcome, detail = lifecycle.OutcomeFailed, err.Error()
	}
	s.recorder.Record(lifecycle.Event{
		TraceID:    middleware.GetReqID(ctx),
		AgentID:    agentID,
		SourceID:   sourceID,
		Action:     action,
		Outcome:    outcome,
		Detail:     detail,
		DurationMs: time.Since(started).Milliseconds(),
	})
}
