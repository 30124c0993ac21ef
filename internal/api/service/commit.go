package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra"
	"github.com/xela07ax/ragbase/internal/ingest"
	"github.com/xela07ax/ragbase/internal/lifecycle"
	"go.uber.org/zap"
)

// CommitRepository описывает требования оркестратора к хранилищу.
type CommitRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	CreateAgent(ctx context.Context, a *domain.Agent) error
	GetAgent(ctx context.Context, id, ownerID string) (*domain.Agent, error)
	ListSourcesByTypeStatus(ctx context.Context, agentID string, t domain.SourceType, status domain.SourceStatus) ([]*domain.KnowledgeSource, error)
	TouchAgent(ctx context.Context, id string) error
}

// IngestGateway — операции сервиса ингестии, нужные коммиту.
// Строки источников создаёт сам сервис ингестии; мы их только читаем.
type IngestGateway interface {
	CreateTextSource(ctx context.Context, token, agentID, title, content string) (*ingest.TextSourceResult, error)
	InitFileSource(ctx context.Context, token, agentID, name string) (string, error)
	ConfirmFileSource(ctx context.Context, token, agentID, sourceID, fileURL, fileName string, size int64) error
	TriggerIngest(ctx context.Context, token, agentID, sourceID string) error
}

// CommitService — оркестратор жизненного цикла источников: создаёт или
// загружает агента и проводит каждый элемент батча через его протокол.
// Это best-effort batch с пер-элементным отчётом, не транзакция.
type CommitService struct {
	repo     CommitRepository
	gw       IngestGateway
	recorder *lifecycle.Recorder
	metrics  *infra.Metrics
	logger   *zap.Logger
}

func NewCommitService(repo CommitRepository, gw IngestGateway, recorder *lifecycle.Recorder, metrics *infra.Metrics, logger *zap.Logger) *CommitService {
	return &CommitService{
		repo:     repo,
		gw:       gw,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.Named("commit-service"),
	}
}

// Commit выполняет протокол коммита. Падение отдельного элемента не
// прерывает цикл; рано прерывают только precondition-проверки
// (профиль, владение агентом).
func (s *CommitService) Commit(ctx context.Context, ownerID, token string, req domain.CommitRequest) (*domain.CommitResult, error) {
	// 0. Профиль пользователя должен существовать
	profile, err := s.repo.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to check profile", err)
	}
	if profile == nil {
		return nil, domain.PreconditionFailed("User profile not found. Please complete your profile setup first.")
	}

	// 1. Resolve agent: retrain либо создание
	retrain := req.AgentID != ""
	agent, err := s.resolveAgent(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	result := &domain.CommitResult{
		Agent: agent,
		Files: []domain.FileResult{},
		Texts: []domain.TextResult{},
	}

	// 2. Текстовые элементы: создание + синхронная ингестия
	for _, t := range req.Texts {
		if t.Title == "" || t.Content == "" {
			continue
		}
		result.Texts = append(result.Texts, s.commitText(ctx, token, agent.ID, t))
	}

	// 3. Retrain: повторная ингестия существующих активных файлов
	if retrain {
		result.Files = append(result.Files, s.reingestExisting(ctx, token, agent.ID)...)
	}

	// 4. Файловые элементы: init (+ confirm, если байты уже загружены)
	for _, f := range req.AllFiles() {
		if f.Name == "" {
			continue
		}
		result.Files = append(result.Files, s.commitFile(ctx, token, agent.ID, f))
	}

	result.Note = buildNote(retrain, result.Files)

	// Коммит трогает у агента только таймстемпы
	if err := s.repo.TouchAgent(ctx, agent.ID); err != nil {
		s.logger.Warn("failed to touch agent", zap.String("agent_id", agent.ID), zap.Error(err))
	}

	return result, nil
}

func (s *CommitService) resolveAgent(ctx context.Context, ownerID string, req domain.CommitRequest) (*domain.Agent, error) {
	if req.AgentID != "" {
		agent, err := s.repo.GetAgent(ctx, req.AgentID, ownerID)
		if err != nil {
			return nil, domain.Internal("failed to load agent", err)
		}
		if agent == nil {
			return nil, domain.NotFound("Chat not found or access denied")
		}
		s.logger.Info("retraining existing agent", zap.String("agent_id", agent.ID))
		return agent, nil
	}

	name := req.Name
	if name == "" {
		name = domain.DefaultAgentName
	}
	description := req.Description
	if description == "" {
		description = domain.DefaultAgentDescription
	}

	agent := &domain.Agent{
		ID:               uuid.New().String(),
		OwnerID:          ownerID,
		Name:             name,
		Description:      description,
		Temperature:      domain.DefaultTemperature,
		SystemPrompt:     domain.DefaultSystemPrompt,
		SystemPromptType: domain.DefaultSystemPromptType,
	}
	if err := s.repo.CreateAgent(ctx, agent); err != nil {
		return nil, domain.Internal("failed to create chat", err)
	}
	s.logger.Info("created new agent", zap.String("agent_id", agent.ID))
	return agent, nil
}

func (s *CommitService) commitText(ctx context.Context, token, agentID string, t domain.TextDescriptor) domain.TextResult {
	started := time.Now()
	res, err := s.gw.CreateTextSource(ctx, token, agentID, t.Title, t.Content)

	if err != nil {
		s.recordItem(ctx, agentID, "", lifecycle.ActionTextCreate, err, started)
		s.countItem("text", "failed")
		return domain.TextResult{OK: false, Error: err.Error()}
	}

	s.recordItem(ctx, agentID, res.SourceID, lifecycle.ActionTextCreate, nil, started)
	s.countItem("text", "ok")
	return domain.TextResult{SourceID: res.SourceID, OK: true, Characters: res.Characters}
}

// reingestExisting перезапускает ингестию активных файловых источников.
// Каждый элемент независим: сбой одного не трогает остальные.
func (s *CommitService) reingestExisting(ctx context.Context, token, agentID string) []domain.FileResult {
	existing, err := s.repo.ListSourcesByTypeStatus(ctx, agentID, domain.SourceTypeFile, domain.StatusActive)
	if err != nil {
		// Сбой выборки — не повод ронять весь коммит
		s.logger.Error("failed to list existing sources", zap.String("agent_id", agentID), zap.Error(err))
		return nil
	}

	results := make([]domain.FileResult, 0, len(existing))
	for _, src := range existing {
		name := src.FileName
		if name == "" {
			name = src.Name
		}

		started := time.Now()
		err := s.gw.TriggerIngest(ctx, token, agentID, src.ID)
		s.recordItem(ctx, agentID, src.ID, lifecycle.ActionReingest, err, started)

		if err != nil {
			s.countItem("existing", "failed")
			results = append(results, domain.FileResult{
				Name: name, SourceID: src.ID, Status: domain.FileFailed, Error: err.Error(),
			})
			continue
		}

		s.countItem("existing", "ok")
		results = append(results, domain.FileResult{Name: name, SourceID: src.ID, Status: domain.FileExisting})
	}
	return results
}

func (s *CommitService) commitFile(ctx context.Context, token, agentID string, f domain.FileDescriptor) domain.FileResult {
	started := time.Now()

	// Шаг 1: init — резервирование источника (status=upload_pending)
	sourceID, err := s.gw.InitFileSource(ctx, token, agentID, f.Name)
	s.recordItem(ctx, agentID, sourceID, lifecycle.ActionFileInit, err, started)
	if err != nil {
		s.countItem("file", "failed")
		return domain.FileResult{Name: f.Name, Status: domain.FileFailed, Error: err.Error()}
	}

	// Шаг 2: если байты уже в хранилище — подтверждаем и запускаем ингестию
	if f.FileURL != "" {
		started = time.Now()
		err := s.gw.ConfirmFileSource(ctx, token, agentID, sourceID, f.FileURL, f.Name, f.Size)
		s.recordItem(ctx, agentID, sourceID, lifecycle.ActionFileConfirm, err, started)

		if err != nil {
			// Строка источника остаётся — отката нет
			s.countItem("file", "failed")
			return domain.FileResult{Name: f.Name, SourceID: sourceID, Status: domain.FileFailed, Error: err.Error()}
		}
		s.countItem("file", "processing")
		return domain.FileResult{Name: f.Name, SourceID: sourceID, Status: domain.FileProcessing}
	}

	// Байтов нет: клиент обязан вызвать Upload Relay для этого source_id
	s.countItem("file", "upload_pending")
	return domain.FileResult{Name: f.Name, SourceID: sourceID, Status: domain.FileUploadPending}
}

func buildNote(retrain bool, files []domain.FileResult) string {
	pending, existing := 0, 0
	for _, f := range files {
		switch f.Status {
		case domain.FileUploadPending:
			pending++
		case domain.FileExisting:
			existing++
		}
	}

	if pending > 0 {
		return fmt.Sprintf("%d file(s) in upload_pending: upload the bytes, the relay will confirm each source.", pending)
	}
	if retrain && existing > 0 {
		return fmt.Sprintf("Retraining started: %d existing file(s) re-processing.", existing)
	}
	return ""
}

func (s *CommitService) recordItem(ctx context.Context, agentID, sourceID, action string, err error, started time.Time) {
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

func (s *CommitService) countItem(itemType, status string) {
	if s.metrics != nil {
		s.metrics.CommitItems.WithLabelValues(itemType, status).Inc()
	}
}
