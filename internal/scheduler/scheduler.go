package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/leadmailer/internal/domain"
	"github.com/shaiso/leadmailer/internal/mailer"
	"github.com/shaiso/leadmailer/internal/telemetry"
)

// Default configuration values.
const (
	defaultBatchSize        = 500
	defaultTransportTimeout = 30 * time.Second
)

// ErrCycleInFlight — предыдущий цикл ещё выполняется.
var ErrCycleInFlight = errors.New("dispatch cycle already in flight")

// Dispatcher — диспетчер отложенных писем.
//
// Один цикл (RunCycle):
//  1. single-flight guard: второй параллельный вызов сразу возвращается
//  2. quota guard: можно ли сейчас отправлять
//  3. выборка due лидов
//  4. для каждого лида — шаблоны его типа
//  5. для каждой пары (lead, template): вариация → персонализация →
//     layout с отпиской → transport → MarkSent при успехе
//
// Ошибки одной пары не блокируют обработку остальных.
type Dispatcher struct {
	leads     LeadStore
	templates TemplateStore
	tokens    TokenStore
	transport Transport
	processor TemplateProcessor
	variation CopyVariation
	quota     QuotaGuard
	events    EventPublisher

	serviceName      string
	fromEmail        string
	batchSize        int
	transportTimeout time.Duration

	now     func() time.Time
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	running atomic.Bool
	last    atomic.Pointer[domain.CycleReport]
}

// Config — конфигурация Dispatcher.
type Config struct {
	Leads     LeadStore
	Templates TemplateStore
	Tokens    TokenStore
	Transport Transport
	Processor TemplateProcessor
	Variation CopyVariation  // опционально; nil — mailer.Passthrough
	Quota     QuotaGuard     // опционально; nil — отправка всегда разрешена
	Events    EventPublisher // опционально

	ServiceName      string
	FromEmail        string
	BatchSize        int           // лидов за цикл (default: 500)
	TransportTimeout time.Duration // таймаут одной отправки (default: 30s)

	Now     func() time.Time // default: time.Now
	Logger  *slog.Logger
	Metrics *telemetry.Metrics // default: незарегистрированные метрики
}

// New создаёт Dispatcher.
func New(cfg Config) *Dispatcher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	transportTimeout := cfg.TransportTimeout
	if transportTimeout <= 0 {
		transportTimeout = defaultTransportTimeout
	}

	variation := cfg.Variation
	if variation == nil {
		variation = mailer.Passthrough{}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}

	return &Dispatcher{
		leads:            cfg.Leads,
		templates:        cfg.Templates,
		tokens:           cfg.Tokens,
		transport:        cfg.Transport,
		processor:        cfg.Processor,
		variation:        variation,
		quota:            cfg.Quota,
		events:           cfg.Events,
		serviceName:      cfg.ServiceName,
		fromEmail:        cfg.FromEmail,
		batchSize:        batchSize,
		transportTimeout: transportTimeout,
		now:              now,
		logger:           logger,
		metrics:          metrics,
		tracer:           telemetry.Tracer(),
	}
}

// Running сообщает, выполняется ли сейчас цикл.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// LastReport возвращает отчёт последнего выполненного (не пропущенного) цикла
// или nil, если циклов ещё не было.
func (d *Dispatcher) LastReport() *domain.CycleReport {
	return d.last.Load()
}

// RunCycle выполняет один цикл отправки.
//
// Никогда не паникует и не возвращает ошибку: результат и ошибки
// собираются в CycleReport. Если цикл уже выполняется, сразу
// возвращает отчёт со статусом skipped, не обращаясь к store.
func (d *Dispatcher) RunCycle(ctx context.Context) (report *domain.CycleReport) {
	report = &domain.CycleReport{
		ID:        uuid.NewString(),
		Status:    domain.CycleStatusCompleted,
		StartedAt: d.now().UTC(),
	}

	if !d.running.CompareAndSwap(false, true) {
		report.Status = domain.CycleStatusSkipped
		report.Reason = ErrCycleInFlight.Error()
		d.metrics.CyclesTotal.WithLabelValues(string(report.Status)).Inc()
		d.logger.Info("dispatch cycle skipped, previous cycle still running")
		return report
	}

	logger := telemetry.WithCycleID(d.logger, report.ID)
	ctx = telemetry.WithLogger(ctx, logger)
	ctx, span := d.tracer.Start(ctx, "dispatch.cycle",
		trace.WithAttributes(attribute.String("cycle.id", report.ID)))
	d.metrics.CycleInFlight.Set(1)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			report.Fail(fmt.Errorf("panic in dispatch cycle: %v", r))
			logger.Error("dispatch cycle panicked", "panic", r)
		}

		report.Duration = time.Since(start)
		d.metrics.CycleInFlight.Set(0)
		d.metrics.CyclesTotal.WithLabelValues(string(report.Status)).Inc()
		d.metrics.CycleDuration.Observe(report.Duration.Seconds())

		if err := report.Err(); err != nil {
			span.RecordError(err)
		}
		if report.Status == domain.CycleStatusFailed {
			span.SetStatus(codes.Error, report.Reason)
		}
		span.End()

		d.last.Store(report)
		d.running.Store(false)
	}()

	d.runCycle(ctx, logger, report)
	return report
}

// runCycle — тело цикла под захваченным guard-ом.
func (d *Dispatcher) runCycle(ctx context.Context, logger *slog.Logger, report *domain.CycleReport) {
	// 1. Разрешение на отправку — до любого обращения к лидам
	limit := d.batchSize
	var budget int64 // 0 — без ограничения
	if d.quota != nil {
		decision, err := d.quota.CanSendNow(ctx)
		if err != nil {
			report.Fail(fmt.Errorf("quota check: %w", err))
			logger.Error("quota check failed, cycle aborted", "error", err)
			return
		}
		if !decision.Allowed {
			report.Status = domain.CycleStatusDenied
			report.Reason = decision.Reason
			logger.Info("sending not allowed, cycle skipped", "reason", decision.Reason)
			return
		}
		budget = decision.Remaining
		if budget > 0 && budget < int64(limit) {
			limit = int(budget)
		}
	}

	// 2. Due лиды
	now := d.now().UTC()
	leads, err := d.leads.SelectDue(ctx, now, limit)
	if err != nil {
		report.Fail(fmt.Errorf("select due leads: %w", err))
		logger.Error("failed to select due leads", "error", err)
		return
	}

	report.DueLeads = len(leads)
	d.metrics.DueLeads.Set(float64(len(leads)))
	if len(leads) == 0 {
		logger.Debug("no due leads")
		return
	}

	logger.Debug("found due leads", "count", len(leads))

	// 3. Отправка
	cache := newVariationCache()
	templatesByType := make(map[string][]domain.Template)

	// Остаток дневного лимита проверяется и внутри цикла: у лида может
	// быть несколько шаблонов.
	quotaReached := func() bool { return budget > 0 && int64(report.Sent) >= budget }

	for i := range leads {
		if ctx.Err() != nil {
			logger.Warn("dispatch cycle interrupted", "error", ctx.Err(), "remaining_leads", len(leads)-i)
			break
		}
		if quotaReached() {
			logger.Info("send quota reached, stopping cycle", "sent", report.Sent, "remaining_leads", len(leads)-i)
			break
		}

		lead := &leads[i]
		templates, err := d.templatesFor(ctx, templatesByType, lead.Classification)
		if err != nil {
			report.Record(domain.DispatchOutcome{
				LeadID: lead.ID,
				Email:  lead.Email,
				Error:  fmt.Sprintf("load templates: %v", err),
				At:     d.now().UTC(),
			})
			logger.Error("failed to load templates",
				"lead_id", lead.ID,
				"classification", lead.Classification,
				"error", err,
			)
			continue
		}

		if len(templates) == 0 {
			report.LeadsWithoutTemplates++
			logger.Info("no delayed templates for lead classification, skipping",
				"lead_id", lead.ID,
				"classification", lead.Classification,
			)
			continue
		}

		for j := range templates {
			if ctx.Err() != nil {
				break
			}
			if quotaReached() {
				break
			}
			outcome := d.dispatchPair(ctx, report.ID, lead, &templates[j], cache)
			report.Record(outcome)
		}
	}

	logger.Info("dispatch cycle completed",
		"due", report.DueLeads,
		"attempted", report.Attempted,
		"sent", report.Sent,
		"failed", report.Failed,
		"without_templates", report.LeadsWithoutTemplates,
		"variations", cache.len(),
	)
}

// templatesFor загружает шаблоны один раз на тип лида за цикл.
func (d *Dispatcher) templatesFor(ctx context.Context, seen map[string][]domain.Template, classification string) ([]domain.Template, error) {
	if templates, ok := seen[classification]; ok {
		return templates, nil
	}
	templates, err := d.templates.TemplatesFor(ctx, classification)
	if err != nil {
		return nil, err
	}
	seen[classification] = templates
	return templates, nil
}
