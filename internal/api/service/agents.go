package service

import (
	"context"

	"github.com/xela07ax/ragbase/internal/domain"
	"go.uber.org/zap"
)

// AgentRepository — чтение и настройка агентов.
type AgentRepository interface {
	ListAgents(ctx context.Context, ownerID string) ([]*domain.Agent, error)
	GetAgent(ctx context.Context, id, ownerID string) (*domain.Agent, error)
	UpdateAgent(ctx context.Context, id, ownerID string, patch domain.AgentPatch) (*domain.Agent, error)
}

// AgentService — surface чтения и настройки агентов. Создание агентов
// живёт в CommitService: агент появляется только вместе с знаниями.
type AgentService struct {
	repo   AgentRepository
	logger *zap.Logger
}

func NewAgentService(repo AgentRepository, logger *zap.Logger) *AgentService {
	return &AgentService{repo: repo, logger: logger.Named("agent-service")}
}

func (s *AgentService) List(ctx context.Context, ownerID string) ([]*domain.Agent, error) {
	agents, err := s.repo.ListAgents(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to list chats", err)
	}
	return agents, nil
}

func (s *AgentService) Get(ctx context.Context, ownerID, agentID string) (*domain.Agent, error) {
	agent, err := s.repo.GetAgent(ctx, agentID, ownerID)
	if err != nil {
		return nil, domain.Internal("failed to load chat", err)
	}
	if agent == nil {
		return nil, domain.NotFound("Chat not found or access denied")
	}
	return agent, nil
}

// Patch применяет частичное обновление настроек. Пустой патч — отказ:
// клиент явно прислал бессмысленный запрос.
func (s *AgentService) Patch(ctx context.Context, ownerID, agentID string, patch domain.AgentPatch) (*domain.Agent, error) {
	if patch.IsEmpty() {
		return nil, domain.BadRequest("No fields to update")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	agent, err := s.repo.UpdateAgent(ctx, agentID, ownerID, patch)
	if err != nil {
		return nil, domain.Internal("failed to update chat", err)
	}
	if agent == nil {
		return nil, domain.NotFound("Chat not found or access denied")
	}

	s.logger.Info("agent settings updated", zap.String("agent_id", agentID))
	return agent, nil
}
