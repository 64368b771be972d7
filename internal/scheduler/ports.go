package scheduler

import (
	"context"
	"time"

	"github.com/shaiso/leadmailer/internal/domain"
	"github.com/shaiso/leadmailer/internal/quota"
)

// LeadStore — хранилище лидов со стороны диспетчера.
type LeadStore interface {
	// SelectDue возвращает до limit лидов с NextSendAt <= now, EmailSent = false
	// и DelayedSendEligible = true. Порядок стабилен в рамках вызова.
	SelectDue(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error)

	// MarkSent выставляет EmailSent = true. Повторный вызов безопасен.
	MarkSent(ctx context.Context, leadID int64) error
}

// TemplateStore — read-only доступ к шаблонам.
type TemplateStore interface {
	// TemplatesFor возвращает шаблоны с DelayedSend = true для типа лида.
	TemplatesFor(ctx context.Context, classification string) ([]domain.Template, error)
}

// TokenStore выдаёт стабильный токен отписки для лида.
type TokenStore interface {
	GetOrCreateUnsubscribeToken(ctx context.Context, leadID int64) (string, error)
}

// Transport доставляет письмо. true — письмо принято провайдером.
type Transport interface {
	Send(ctx context.Context, to, subject, html string) (bool, error)
}

// TemplateProcessor добавляет стандартный header/CSS/footer и ссылку отписки.
type TemplateProcessor interface {
	Apply(rawHTML, unsubscribeToken string) (string, error)
}

// CopyVariation варьирует тему и тело шаблона. Может быть passthrough.
type CopyVariation interface {
	Apply(ctx context.Context, content domain.Content, scopeKey, serviceName, fromEmail string) (domain.Content, error)
}

// QuotaGuard отвечает, может ли процесс сейчас отправлять почту.
type QuotaGuard interface {
	CanSendNow(ctx context.Context) (quota.Decision, error)
}

// SendRecorder — опциональное расширение QuotaGuard для учёта отправок.
type SendRecorder interface {
	RecordSend(ctx context.Context) error
}

// EventPublisher публикует результат отправки (история доставки).
type EventPublisher interface {
	PublishOutcome(ctx context.Context, cycleID string, outcome domain.DispatchOutcome) error
}
