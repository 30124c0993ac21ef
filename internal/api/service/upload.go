package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra"
	"github.com/xela07ax/ragbase/internal/ingest"
	"github.com/xela07ax/ragbase/internal/lifecycle"
	"github.com/xela07ax/ragbase/internal/storage"
	"go.uber.org/zap"
)

// UploadRepository — доступ оркестратора загрузок к строкам источников.
type UploadRepository interface {
	GetAgent(ctx context.Context, id, ownerID string) (*domain.Agent, error)
	GetSource(ctx context.Context, id, agentID string) (*domain.KnowledgeSource, error)
	ConfirmUpload(ctx context.Context, sourceID, agentID, storageKey, fileName string, fileSize int64) (*domain.KnowledgeSource, error)
}

// TriggerEnqueuer ставит запуск ингестии в фоновую очередь.
type TriggerEnqueuer interface {
	Enqueue(job ingest.TriggerJob)
}

// UploadService принимает байты файла для ранее инициализированного
// источника, кладёт их в объектное хранилище write-once и переводит
// источник в processing. Сама ингестия запускается асинхронно.
type UploadService struct {
	repo       UploadRepository
	store      storage.ObjectStore
	dispatcher TriggerEnqueuer
	recorder   *lifecycle.Recorder
	metrics    *infra.Metrics
	logger     *zap.Logger
}

func NewUploadService(repo UploadRepository, store storage.ObjectStore, dispatcher TriggerEnqueuer, recorder *lifecycle.Recorder, metrics *infra.Metrics, logger *zap.Logger) *UploadService {
	return &UploadService{
		repo:       repo,
		store:      store,
		dispatcher: dispatcher,
		recorder:   recorder,
		metrics:    metrics,
		logger:     logger.Named("upload-service"),
	}
}

// UploadResult возвращается клиенту сразу после сохранения байтов;
// статус внутри снапшота — processing, не active: ингестия ещё идёт.
type UploadResult struct {
	StorageKey string                  `json:"storage_key"`
	Source     *domain.KnowledgeSource `json:"knowledge_source"`
}

// Upload валидирует владение цепочкой user->agent->source, сохраняет
// байты и подтверждает источник. Повторная загрузка того же файла
// идемпотентна на уровне хранилища: второй Put получает ErrObjectExists.
func (s *UploadService) Upload(ctx context.Context, ownerID, token, agentID, sourceID, filename, contentType string, data []byte) (*UploadResult, error) {
	if agentID == "" || sourceID == "" {
		return nil, domain.BadRequest("agentId and sourceId are required")
	}
	if filename == "" || len(data) == 0 {
		return nil, domain.BadRequest("file is required")
	}

	agent, err := s.repo.GetAgent(ctx, agentID, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to load agent", err)
	}
	if agent == nil {
		return nil, domain.NotFound("Chat not found or access denied")
	}

	src, err := s.repo.GetSource(ctx, sourceID, agentID)
	if err != nil {
		return nil, domain.Internal("failed to load source", err)
	}
	if src == nil {
		return nil, domain.NotFound("Source not found")
	}

	key := storage.ObjectKey(ownerID, agentID, sourceID, filename)

	started := time.Now()
	switch err := s.store.Put(ctx, key, contentType, data); {
	case errors.Is(err, storage.ErrObjectExists):
		// Байты уже на месте: повторная доставка, не ошибка.
		// Подтверждение ниже само разрулит текущий статус источника.
		s.logger.Info("object already exists, treating as redelivery",
			zap.String("source_id", sourceID), zap.String("key", key))
	case err != nil:
		s.recordUpload(ctx, agentID, sourceID, err, started)
		return nil, domain.Internal("failed to store file", err)
	default:
		if s.metrics != nil {
			s.metrics.UploadBytes.Add(float64(len(data)))
		}
	}
	s.recordUpload(ctx, agentID, sourceID, nil, started)

	confirmed, err := s.repo.ConfirmUpload(ctx, sourceID, agentID, key, filename, int64(len(data)))
	if err != nil {
		return nil, domain.Internal("failed to confirm upload", err)
	}
	if confirmed == nil {
		return nil, domain.NotFound("Source not found")
	}

	// Запуск ингестии уходит в очередь; ответ клиенту не ждёт апстрим
	s.dispatcher.Enqueue(ingest.TriggerJob{
		AgentID:  agentID,
		SourceID: sourceID,
		Token:    token,
		TraceID:  middleware.GetReqID(ctx),
	})

	return &UploadResult{StorageKey: key, Source: confirmed}, nil
}

func (s *UploadService) recordUpload(ctx context.Context, agentID, sourceID string, err error, started time.Time) {
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
		Action:     lifecycle.ActionUpload,
		Outcome:    outcome,
		Detail:     detail,
		DurationMs: time.Since(started).Milliseconds(),
	})
}
