package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/ragbase/internal/domain"
)

// ErrInvalidTransition — попытка перевести источник в статус,
// запрещённый таблицей переходов. Такая запись отвергается.
var ErrInvalidTransition = errors.New("postgres: source status transition not allowed")

const sourceColumns = `id, agent_id, type, name, content, file_url, file_name, file_size, character_count, status, error_message, created_at, updated_at`

func scanSource(row pgx.Row) (*domain.KnowledgeSource, error) {
	s := &domain.KnowledgeSource{}
	var content, fileURL, fileName, errMsg sql.NullString
	var fileSize sql.NullInt64
	var charCount sql.NullInt32

	err := row.Scan(
		&s.ID, &s.AgentID, &s.Type, &s.Name, &content,
		&fileURL, &fileName, &fileSize, &charCount,
		&s.Status, &errMsg, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Content = content.String
	s.FileURL = fileURL.String
	s.FileName = fileName.String
	s.FileSize = fileSize.Int64
	s.CharacterCount = int(charCount.Int32)
	s.ErrorMessage = errMsg.String
	return s, nil
}

func (r *Repo) collectSources(ctx context.Context, query string, args ...interface{}) ([]*domain.KnowledgeSource, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query sources: %w", err)
	}
	defer rows.Close()

	sources := make([]*domain.KnowledgeSource, 0)
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// ListSources возвращает все источники агента, свежие сверху.
func (r *Repo) ListSources(ctx context.Context, agentID string) ([]*domain.KnowledgeSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM knowledge_sources WHERE agent_id = $1 ORDER BY created_at DESC`
	return r.collectSources(ctx, query, agentID)
}

// ListSourcesByTypeStatus — выборка для переобучения (file + active).
func (r *Repo) ListSourcesByTypeStatus(ctx context.Context, agentID string, t domain.SourceType, status domain.SourceStatus) ([]*domain.KnowledgeSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM knowledge_sources WHERE agent_id = $1 AND type = $2 AND status = $3`
	return r.collectSources(ctx, query, agentID, t, status)
}

// ListSourcesByStatuses — выборка зависших источников для очистки.
func (r *Repo) ListSourcesByStatuses(ctx context.Context, agentID string, statuses ...domain.SourceStatus) ([]*domain.KnowledgeSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM knowledge_sources WHERE agent_id = $1 AND status = ANY($2)`
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}
	return r.collectSources(ctx, query, agentID, raw)
}

// GetSource возвращает источник в пределах агента; nil без ошибки, если
// строки нет или она принадлежит другому агенту.
func (r *Repo) GetSource(ctx context.Context, sourceID, agentID string) (*domain.KnowledgeSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM knowledge_sources WHERE id = $1 AND agent_id = $2`

	s, err := scanSource(r.pool.QueryRow(ctx, query, sourceID, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get source: %w", err)
	}
	return s, nil
}

// ConfirmUpload фиксирует загрузку байтов: file_url = ключ хранилища,
// статус upload_pending → processing. Повторный confirm при processing
// допустим (перезапись ключа тем же значением), при active — no-op:
// терминальный успех молча не перетираем. Остальные статусы — отказ.
func (r *Repo) ConfirmUpload(ctx context.Context, sourceID, agentID, storageKey, fileName string, fileSize int64) (*domain.KnowledgeSource, error) {
	query := `
		UPDATE knowledge_sources
		SET file_url = $3, file_name = $4, file_size = $5, status = $6, updated_at = NOW()
		WHERE id = $1 AND agent_id = $2 AND status = ANY($7)
		RETURNING ` + sourceColumns

	allowed := []string{string(domain.StatusUploadPending), string(domain.StatusProcessing)}

	s, err := scanSource(r.pool.QueryRow(ctx, query,
		sourceID, agentID, storageKey, fileName, fileSize,
		string(domain.StatusProcessing), allowed,
	))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: failed to confirm upload: %w", err)
	}

	// Строка не обновилась: либо её нет, либо статус вне допустимых.
	current, err := r.GetSource(ctx, sourceID, agentID)
	if err != nil {
		return nil, err
	}
	return resolveConfirmConflict(current)
}

// resolveConfirmConflict решает исход confirm, когда UPDATE не нашёл
// строку: источника нет, он уже active (терминальный успех, no-op)
// или стоит в статусе, из которого переход в processing запрещён.
func resolveConfirmConflict(current *domain.KnowledgeSource) (*domain.KnowledgeSource, error) {
	if current == nil {
		return nil, nil
	}
	if current.Status == domain.StatusActive {
		return current, nil
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, domain.StatusProcessing)
}

// DeleteSources удаляет источники агента из переданного набора ids.
// Чужие и несуществующие id молча игнорируются; возвращается снимок
// фактически удалённых строк. Чанки уходят каскадом на уровне схемы.
func (r *Repo) DeleteSources(ctx context.Context, agentID string, ids []string) ([]*domain.KnowledgeSource, error) {
	query := `
		DELETE FROM knowledge_sources
		WHERE agent_id = $1 AND id = ANY($2)
		RETURNING ` + sourceColumns

	rows, err := r.pool.Query(ctx, query, agentID, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to delete sources: %w", err)
	}
	defer rows.Close()

	deleted := make([]*domain.KnowledgeSource, 0)
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan deleted source: %w", err)
		}
		deleted = append(deleted, s)
	}
	return deleted, rows.Err()
}

// DeleteSource удаляет один источник (путь очистки).
func (r *Repo) DeleteSource(ctx context.Context, agentID, sourceID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM knowledge_sources WHERE agent_id = $1 AND id = $2`,
		agentID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete source: %w", err)
	}
	return nil
}
