// Package leads — квалификация лидов для отложенной отправки.
//
// Квалификация — единственное место, где вычисляется NextSendAt:
// зона лида (timezone.Resolver) + правило задержки (scheduler.SendTimeCalculator).
// Диспетчер это значение только читает.
package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/leadmailer/internal/domain"
	"github.com/shaiso/leadmailer/internal/scheduler"
)

var (
	// ErrUnsubscribed — лид отписался, квалифицировать нельзя.
	ErrUnsubscribed = errors.New("lead is unsubscribed")

	// ErrNotFuture — новый момент отправки не в будущем.
	ErrNotFuture = errors.New("next send time must be in the future")
)

// Store — хранилище лидов для квалификации.
type Store interface {
	GetLead(ctx context.Context, id int64) (*domain.Lead, error)
	SaveLead(ctx context.Context, lead *domain.Lead) error
}

// ZoneResolver — определение зоны лида.
type ZoneResolver interface {
	Resolve(ctx context.Context, ip, countryCode string) string
}

// Qualifier вооружает лидов для отложенной отправки.
type Qualifier struct {
	store  Store
	zones  ZoneResolver
	calc   *scheduler.SendTimeCalculator
	rule   domain.DelayRule
	now    func() time.Time
	logger *slog.Logger
}

// Config — конфигурация Qualifier.
type Config struct {
	Store  Store
	Zones  ZoneResolver
	Rule   domain.DelayRule // правило по умолчанию
	Now    func() time.Time
	Logger *slog.Logger
}

// NewQualifier создаёт Qualifier. Rule проверяется сразу.
func NewQualifier(cfg Config) (*Qualifier, error) {
	if err := cfg.Rule.Validate(); err != nil {
		return nil, fmt.Errorf("delay rule: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Qualifier{
		store:  cfg.Store,
		zones:  cfg.Zones,
		calc:   scheduler.NewSendTimeCalculator(now, logger),
		rule:   cfg.Rule,
		now:    now,
		logger: logger,
	}, nil
}

// Qualify вычисляет NextSendAt для лида по правилу по умолчанию.
//
// Уже квалифицированный лид не пересчитывается: NextSendAt вычисляется
// один раз. Лид без зоны получает её от ZoneResolver.
func (q *Qualifier) Qualify(ctx context.Context, leadID int64) (*domain.Lead, error) {
	lead, err := q.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", leadID, err)
	}
	if lead.Unsubscribed {
		return nil, ErrUnsubscribed
	}

	logger := q.logger.With("lead_id", lead.ID)

	if lead.DelayedSendEligible && lead.NextSendAt != nil {
		logger.Debug("lead already qualified", "next_send_at", lead.NextSendAt)
		return lead, nil
	}

	q.ensureZone(ctx, lead)

	at := q.calc.Compute(q.rule, lead.Timezone)
	lead.Arm(at)

	if err := q.store.SaveLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("save lead %d: %w", leadID, err)
	}

	logger.Info("lead qualified for delayed send",
		"timezone", lead.Timezone,
		"next_send_at", at,
	)
	return lead, nil
}

// Rearm назначает лиду новую отправку по правилу rule.
//
// EmailSent сбрасывается только вместе с новым NextSendAt, и только если
// этот момент в будущем: иначе лид был бы отправлен повторно немедленно.
func (q *Qualifier) Rearm(ctx context.Context, leadID int64, rule domain.DelayRule) (*domain.Lead, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("delay rule: %w", err)
	}

	lead, err := q.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", leadID, err)
	}
	if lead.Unsubscribed {
		return nil, ErrUnsubscribed
	}

	q.ensureZone(ctx, lead)

	at := q.calc.Compute(rule, lead.Timezone)
	if !at.After(q.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFuture, at.Format(time.RFC3339))
	}

	lead.Arm(at)
	if err := q.store.SaveLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("save lead %d: %w", leadID, err)
	}

	q.logger.With("lead_id", lead.ID).Info("lead re-armed for delayed send",
		"timezone", lead.Timezone,
		"next_send_at", at,
		"delay_value", rule.Value,
		"delay_unit", rule.Unit,
	)
	return lead, nil
}

func (q *Qualifier) ensureZone(ctx context.Context, lead *domain.Lead) {
	if lead.Timezone != "" || q.zones == nil {
		return
	}
	lead.Timezone = q.zones.Resolve(ctx, lead.IPAddress, lead.CountryCode)
}
