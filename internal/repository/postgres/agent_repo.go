package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/ragbase/internal/domain"
)

const agentColumns = `id, owner_id, name, description, model, temperature, system_prompt, system_prompt_type, created_at, updated_at`

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	a := &domain.Agent{}
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.Model,
		&a.Temperature, &a.SystemPrompt, &a.SystemPromptType,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAgent вставляет нового агента. Таймстемпы проставляет база.
func (r *Repo) CreateAgent(ctx context.Context, a *domain.Agent) error {
	query := `
		INSERT INTO agents (id, owner_id, name, description, model, temperature, system_prompt, system_prompt_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		a.ID, a.OwnerID, a.Name, a.Description, a.Model,
		a.Temperature, a.SystemPrompt, a.SystemPromptType,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to create agent: %w", err)
	}
	return nil
}

// GetAgent возвращает агента только если он принадлежит ownerID.
// Возвращает nil без ошибки, если строки нет — чужой и отсутствующий
// агент наружу неразличимы.
func (r *Repo) GetAgent(ctx context.Context, id, ownerID string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1 AND owner_id = $2`

	a, err := scanAgent(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get agent: %w", err)
	}
	return a, nil
}

// ListAgents возвращает агентов пользователя, сначала недавно обновлённые.
func (r *Repo) ListAgents(ctx context.Context, ownerID string) ([]*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE owner_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query agents: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	agents := make([]*domain.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateAgent применяет патч поле-за-полем. updated_at бампается всегда.
func (r *Repo) UpdateAgent(ctx context.Context, id, ownerID string, patch domain.AgentPatch) (*domain.Agent, error) {
	set := []string{"updated_at = NOW()"}
	args := []interface{}{id, ownerID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Model != nil {
		add("model", *patch.Model)
	}
	if patch.Temperature != nil {
		add("temperature", *patch.Temperature)
	}
	if patch.SystemPrompt != nil {
		add("system_prompt", *patch.SystemPrompt)
	}
	if patch.SystemPromptType != nil {
		add("system_prompt_type", *patch.SystemPromptType)
	}

	query := fmt.Sprintf(
		`UPDATE agents SET %s WHERE id = $1 AND owner_id = $2 RETURNING %s`,
		strings.Join(set, ", "), agentColumns,
	)

	a, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to update agent: %w", err)
	}
	return a, nil
}

// TouchAgent бампает updated_at после коммита/переобучения.
func (r *Repo) TouchAgent(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE agents SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to touch agent: %w", err)
	}
	return nil
}
