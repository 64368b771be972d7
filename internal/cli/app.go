package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/leadmailer/internal/config"
	"github.com/shaiso/leadmailer/internal/leads"
	"github.com/shaiso/leadmailer/internal/mailer"
	"github.com/shaiso/leadmailer/internal/mq"
	"github.com/shaiso/leadmailer/internal/quota"
	"github.com/shaiso/leadmailer/internal/repo"
	"github.com/shaiso/leadmailer/internal/scheduler"
	"github.com/shaiso/leadmailer/internal/telemetry"
	"github.com/shaiso/leadmailer/internal/timezone"
)

// App — собранные зависимости сервиса.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *telemetry.Metrics

	Pool        *pgxpool.Pool
	Leads       *repo.LeadRepo
	Dispatcher  *scheduler.Dispatcher
	Qualifier   *leads.Qualifier
	AMQP        *mq.Connection // nil, если RABBITMQ_URL не задан
	Publisher   *mq.Publisher  // nil, если RABBITMQ_URL не задан
	leaderLock  *repo.LeaderLock
	redisClient *redis.Client
}

// NewApp подключается к инфраструктуре и собирает диспетчер и квалификатор.
// При ошибке уже открытые соединения закрываются.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	if err := app.build(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = telemetry.NewMetrics(a.Registry)

	// Postgres
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.Pool = pool
	logger.Info("connected to database")

	a.Leads = repo.NewLeadRepo(a.Pool)

	// Quota guards: конфигурация → лидерство → дневной лимит
	guards := quota.Chain{quota.NewStatic(cfg.SendingEnabled)}
	if cfg.LeaderLock {
		a.leaderLock = repo.NewLeaderLock(a.Pool, repo.DispatchLockKey, logger)
		guards = append(guards, a.leaderLock)
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		guards = append(guards, quota.NewRedisGuard(quota.RedisConfig{
			Client:  a.redisClient,
			Limit:   cfg.DailySendLimit,
			Enabled: true,
		}))
		logger.Info("connected to redis", "daily_send_limit", cfg.DailySendLimit)
	}

	// RabbitMQ
	if cfg.RabbitMQURL != "" {
		conn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		a.AMQP = conn
		if err := mq.SetupTopology(ctx, a.AMQP); err != nil {
			return fmt.Errorf("setup rabbitmq topology: %w", err)
		}
		a.Publisher = mq.NewPublisher(a.AMQP, logger)
	}

	a.Dispatcher = scheduler.New(scheduler.Config{
		Leads:     a.Leads,
		Templates: repo.NewTemplateRepo(a.Pool),
		Tokens:    repo.NewUnsubscribeRepo(a.Pool),
		Transport: mailer.NewBrevoTransport(mailer.BrevoConfig{
			APIURL:     cfg.BrevoAPIURL,
			APIKey:     cfg.BrevoAPIKey,
			Sender:     mailer.Contact{Name: cfg.FromName, Email: cfg.FromEmail},
			Timeout:    cfg.TransportTimeout,
			RatePerSec: cfg.SendRatePerSec,
			Logger:     logger,
		}),
		Processor: mailer.NewLayout(mailer.LayoutConfig{
			ServiceName:        cfg.ServiceName,
			UnsubscribeBaseURL: cfg.UnsubscribeBaseURL,
		}),
		Quota:            guards,
		Events:           a.events(),
		ServiceName:      cfg.ServiceName,
		FromEmail:        cfg.FromEmail,
		BatchSize:        cfg.BatchSize,
		TransportTimeout: cfg.TransportTimeout,
		Logger:           logger,
		Metrics:          a.Metrics,
	})

	resolver := timezone.NewResolver(timezone.Config{
		Geo:         timezone.NewGeoClient(cfg.GeoAPIURL, 0),
		DefaultZone: cfg.DefaultTimezone,
		Logger:      logger,
		Metrics:     a.Metrics,
	})

	a.Qualifier, err = leads.NewQualifier(leads.Config{
		Store:  a.Leads,
		Zones:  resolver,
		Rule:   cfg.Delay,
		Logger: logger,
	})
	return err
}

// events — publisher как scheduler.EventPublisher; nil без RabbitMQ.
func (a *App) events() scheduler.EventPublisher {
	if a.Publisher == nil {
		return nil
	}
	return a.Publisher
}

// QualifyHandler — обработчик сообщений lead.created.
func (a *App) QualifyHandler() mq.Handler {
	return func(ctx context.Context, msg *mq.Message) error {
		payload, err := mq.ParsePayload[mq.LeadCreatedPayload](msg)
		if err != nil {
			return mq.Permanent(err)
		}
		if _, err := a.Qualifier.Qualify(ctx, payload.LeadID); err != nil {
			if errors.Is(err, repo.ErrNotFound) || errors.Is(err, leads.ErrUnsubscribed) {
				return mq.Permanent(err)
			}
			return err
		}
		return nil
	}
}

// Close освобождает ресурсы в обратном порядке.
func (a *App) Close() {
	if a.leaderLock != nil {
		a.leaderLock.Release(context.Background())
	}
	if a.AMQP != nil {
		if err := a.AMQP.Close(); err != nil {
			a.Logger.Warn("close rabbitmq", "error", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.Logger.Warn("close redis", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
