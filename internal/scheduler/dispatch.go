package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/leadmailer/internal/domain"
	"github.com/shaiso/leadmailer/internal/mailer"
	"github.com/shaiso/leadmailer/internal/telemetry"
)

// Результаты отправки пары для метрики sends_total.
const (
	resultSent     = "sent"
	resultRejected = "rejected"
	resultError    = "error"
)

// pairStoreTimeout — запас на store, quota и публикацию события сверх таймаута отправки.
const pairStoreTimeout = 10 * time.Second

// errTransportDeclined — transport вернул false без ошибки.
var errTransportDeclined = errors.New("transport did not accept message")

// dispatchPair отправляет один шаблон одному лиду.
//
// При успехе transport лид помечается EmailSent. При любой ошибке состояние
// лида не меняется, и он останется due в следующем цикле. Паника внутри пары
// перехватывается и превращается в неуспешный результат.
//
// Отмена ctx не прерывает начатую пару: письмо, принятое transport, должно
// дойти до MarkSent, иначе после рестарта лид получит его повторно.
// Пара ограничена только таймаутами.
func (d *Dispatcher) dispatchPair(ctx context.Context, cycleID string, lead *domain.Lead, tpl *domain.Template, cache *variationCache) (outcome domain.DispatchOutcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.transportTimeout+pairStoreTimeout)
	defer cancel()

	logger := telemetry.WithLead(telemetry.FromContext(ctx), lead.ID, tpl.ID)
	ctx, span := d.tracer.Start(ctx, "dispatch.pair", trace.WithAttributes(
		attribute.Int64("lead.id", lead.ID),
		attribute.Int64("template.id", tpl.ID),
	))

	outcome = domain.DispatchOutcome{
		LeadID:     lead.ID,
		TemplateID: tpl.ID,
		Email:      lead.Email,
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Error = fmt.Sprintf("panic: %v", r)
			logger.Error("dispatch pair panicked", "panic", r)
			d.metrics.SendsTotal.WithLabelValues(resultError).Inc()
		}
		outcome.At = d.now().UTC()

		if outcome.Error != "" {
			span.SetStatus(codes.Error, outcome.Error)
		}
		span.End()

		d.publish(ctx, logger, cycleID, outcome)
	}()

	err := d.deliver(ctx, logger, lead, tpl, cache)
	if err != nil {
		outcome.Error = err.Error()

		result := resultError
		if errors.Is(err, mailer.ErrTransportRejected) || errors.Is(err, errTransportDeclined) {
			result = resultRejected
		}
		d.metrics.SendsTotal.WithLabelValues(result).Inc()

		logger.Warn("email not sent, lead stays due", "email", lead.Email, "error", err)
		return outcome
	}

	outcome.Success = true
	d.metrics.SendsTotal.WithLabelValues(resultSent).Inc()

	// Письмо ушло. Если флаг не запишется, лид будет отправлен повторно
	// в следующем цикле (at-least-once).
	if err := d.leads.MarkSent(ctx, lead.ID); err != nil {
		outcome.Error = fmt.Sprintf("mark sent: %v", err)
		logger.Error("email sent but lead not marked, duplicate possible", "error", err)
	}

	if recorder, ok := d.quota.(SendRecorder); ok {
		if err := recorder.RecordSend(ctx); err != nil {
			logger.Warn("failed to record send in quota", "error", err)
		}
	}

	logger.Info("email sent", "email", lead.Email, "template_name", tpl.Name)
	return outcome
}

// deliver — шаги 1–4 отправки пары.
func (d *Dispatcher) deliver(ctx context.Context, logger *slog.Logger, lead *domain.Lead, tpl *domain.Template, cache *variationCache) error {
	// 1. Вариация шаблона (кэш цикла)
	content, hit, err := cache.get(ctx, tpl, func(ctx context.Context, raw domain.Content, key string) (domain.Content, error) {
		return d.variation.Apply(ctx, raw, key, d.serviceName, d.fromEmail)
	})
	if err != nil {
		logger.Warn("copy variation failed, using original template", "error", err)
	}
	if !hit {
		logger.Debug("variation computed", "cache_key", tpl.CacheKey())
	}

	// 2. Персонализация
	vars := lead.Vars()
	subject := mailer.Personalize(content.Subject, vars)
	body := mailer.PersonalizeHTML(content.HTML, vars)

	// 3. Токен отписки и стандартный макет
	token, err := d.tokens.GetOrCreateUnsubscribeToken(ctx, lead.ID)
	if err != nil {
		return fmt.Errorf("unsubscribe token: %w", err)
	}
	html, err := d.processor.Apply(body, token)
	if err != nil {
		return fmt.Errorf("apply layout: %w", err)
	}

	// 4. Отправка
	sendCtx, cancel := context.WithTimeout(ctx, d.transportTimeout)
	defer cancel()

	accepted, err := d.transport.Send(sendCtx, lead.Email, subject, html)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if !accepted {
		return errTransportDeclined
	}
	return nil
}

// publish отправляет событие истории доставки. Ошибки не фатальны.
func (d *Dispatcher) publish(ctx context.Context, logger *slog.Logger, cycleID string, outcome domain.DispatchOutcome) {
	if d.events == nil {
		return
	}
	if err := d.events.PublishOutcome(ctx, cycleID, outcome); err != nil {
		logger.Warn("failed to publish dispatch outcome", "error", err)
	}
}
