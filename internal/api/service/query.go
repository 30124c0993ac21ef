package service

import (
	"context"
	"strings"
	"time"

	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/ingest"
	"go.uber.org/zap"
)

// QueryGateway — RAG-запрос к сервису ингестии.
type QueryGateway interface {
	Query(ctx context.Context, token, agentID string, payload ingest.QueryPayload) (*domain.QueryResponse, error)
}

// QueryService проксирует диалоговые запросы в сервис ингестии от
// имени пользователя. Настройки агента (модель, температура, промпт)
// задаются апстримом из строки агента; клиент может переопределить
// их точечно — неуказанные поля в payload не передаются вовсе.
type QueryService struct {
	repo   AgentRepository
	gw     QueryGateway
	logger *zap.Logger
}

func NewQueryService(repo AgentRepository, gw QueryGateway, logger *zap.Logger) *QueryService {
	return &QueryService{repo: repo, gw: gw, logger: logger.Named("query-service")}
}

func (s *QueryService) Query(ctx context.Context, ownerID, token, agentID string, req domain.QueryRequest) (*domain.QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	agent, err := s.repo.GetAgent(ctx, agentID, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to load chat", err)
	}
	if agent == nil {
		return nil, domain.NotFound("Chat not found or access denied")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	// Промпт из одних пробелов апстриму не передаётся; режим наложения
	// промпта передаётся всегда, по умолчанию merge.
	prompt := strings.TrimSpace(req.SystemPrompt)
	mode := req.SystemPromptMode
	if mode == "" {
		mode = domain.PromptModeMerge
	}

	payload := ingest.QueryPayload{
		Messages:         req.Messages,
		TopK:             topK,
		Model:            req.Model,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		SystemPrompt:     prompt,
		SystemPromptMode: mode,
	}

	started := time.Now()
	res, err := s.gw.Query(ctx, token, agentID, payload)
	if err != nil {
		// Статус и текст апстрима пробрасываются как есть
		return nil, err
	}

	// Контент источников нормализуется к единому полю для клиента
	for i := range res.Sources {
		res.Sources[i].Content = res.Sources[i].DisplayContent()
	}

	s.logger.Info("query proxied",
		zap.String("agent_id", agentID),
		zap.Int("sources", len(res.Sources)),
		zap.Duration("took", time.Since(started)))
	return res, nil
}
