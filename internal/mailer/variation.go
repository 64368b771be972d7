package mailer

import (
	"context"

	"github.com/shaiso/leadmailer/internal/domain"
)

// Passthrough — вариация, возвращающая текст без изменений.
// Используется, когда сервис вариаций не подключён.
type Passthrough struct{}

// Apply возвращает content как есть.
func (Passthrough) Apply(_ context.Context, content domain.Content, _, _, _ string) (domain.Content, error) {
	return content, nil
}
