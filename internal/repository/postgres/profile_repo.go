package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/ragbase/internal/domain"
)

const profileColumns = `user_id, created_at`

// GetProfile возвращает профиль пользователя или nil, если профиль
// ещё не настроен. Сами профили ведёт внешняя auth-система.
func (r *Repo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	p := &domain.Profile{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get profile: %w", err)
	}
	return p, nil
}
