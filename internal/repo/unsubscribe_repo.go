package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UnsubscribeRepo — токены отписки, по одному на лида.
type UnsubscribeRepo struct {
	pool *pgxpool.Pool
}

// NewUnsubscribeRepo создаёт новый UnsubscribeRepo.
func NewUnsubscribeRepo(pool *pgxpool.Pool) *UnsubscribeRepo {
	return &UnsubscribeRepo{pool: pool}
}

// GetOrCreateUnsubscribeToken возвращает токен лида, создавая его при первом вызове.
// Параллельные вызовы для одного лида получают один и тот же токен.
func (r *UnsubscribeRepo) GetOrCreateUnsubscribeToken(ctx context.Context, leadID int64) (string, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO unsubscribe_tokens (lead_id, token)
		VALUES ($1, $2)
		ON CONFLICT (lead_id) DO NOTHING
	`, leadID, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("insert unsubscribe token: %w", err)
	}

	var token string
	err = r.pool.QueryRow(ctx,
		`SELECT token FROM unsubscribe_tokens WHERE lead_id = $1`, leadID,
	).Scan(&token)
	if err != nil {
		return "", fmt.Errorf("select unsubscribe token: %w", err)
	}
	return token, nil
}
