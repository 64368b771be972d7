package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/leadmailer/internal/domain"
)

// TemplateRepo — репозиторий шаблонов писем.
type TemplateRepo struct {
	pool *pgxpool.Pool
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

// TemplatesFor возвращает шаблоны отложенной отправки для типа лида.
// Пустой список — нормальный случай.
func (r *TemplateRepo) TemplatesFor(ctx context.Context, classification string) ([]domain.Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, subject, html, delayed_send, classification, updated_at
		FROM email_templates
		WHERE delayed_send = TRUE AND classification = $1
		ORDER BY id ASC
	`, classification)
	if err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		var tpl domain.Template
		if err := rows.Scan(
			&tpl.ID,
			&tpl.Name,
			&tpl.Subject,
			&tpl.HTML,
			&tpl.DelayedSend,
			&tpl.Classification,
			&tpl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}
