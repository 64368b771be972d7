// Package config читает конфигурацию сервиса из переменных окружения.
//
// Вне production перед чтением загружается .env из рабочей директории
// (если он есть). Уже выставленные переменные окружения .env не перекрывает.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/shaiso/leadmailer/internal/domain"
)

// Config — конфигурация leadmailer.
type Config struct {
	Env         string
	ServiceName string

	DatabaseURL string
	RedisURL    string // пусто — дневной лимит не применяется
	RabbitMQURL string // пусто — события доставки не публикуются

	FromEmail          string
	FromName           string
	BrevoAPIKey        string
	BrevoAPIURL        string
	UnsubscribeBaseURL string

	DispatchInterval time.Duration
	BatchSize        int
	SendRatePerSec   float64
	DailySendLimit   int64
	SendingEnabled   bool
	TransportTimeout time.Duration
	LeaderLock       bool // только экземпляр с advisory lock отправляет письма

	GeoAPIURL       string
	DefaultTimezone string
	Delay           domain.DelayRule

	OpsPort string
}

// Значения по умолчанию.
const (
	DefaultDispatchInterval = 5 * time.Minute
	DefaultBatchSize        = 500
	DefaultSendRatePerSec   = 5
	DefaultTransportTimeout = 15 * time.Second
	DefaultTimezone         = "America/Sao_Paulo"
	DefaultOpsPort          = "8081"
	DefaultServiceName      = "leadmailer"
)

// Load загружает .env (кроме production) и читает окружение.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает Config из функции чтения переменных.
// Все ошибки разбора возвращаются вместе.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := &parser{getenv: getenv}

	cfg := &Config{
		Env:         p.str("APP_ENV", "development"),
		ServiceName: p.str("SERVICE_NAME", DefaultServiceName),

		DatabaseURL: p.str("DB_URL", ""),
		RedisURL:    p.str("REDIS_URL", ""),
		RabbitMQURL: p.str("RABBITMQ_URL", ""),

		FromEmail:          p.str("FROM_EMAIL", ""),
		FromName:           p.str("FROM_NAME", ""),
		BrevoAPIKey:        p.str("BREVO_API_KEY", ""),
		BrevoAPIURL:        p.str("BREVO_API_URL", ""),
		UnsubscribeBaseURL: p.str("UNSUBSCRIBE_BASE_URL", ""),

		DispatchInterval: p.duration("DISPATCH_INTERVAL", DefaultDispatchInterval),
		BatchSize:        p.int("DISPATCH_BATCH_SIZE", DefaultBatchSize),
		SendRatePerSec:   p.float("SEND_RATE_PER_SEC", DefaultSendRatePerSec),
		DailySendLimit:   int64(p.int("DAILY_SEND_LIMIT", 0)),
		SendingEnabled:   p.bool("SENDING_ENABLED", true),
		TransportTimeout: p.duration("TRANSPORT_TIMEOUT", DefaultTransportTimeout),
		LeaderLock:       p.bool("LEADER_LOCK", true),

		GeoAPIURL:       p.str("GEO_API_URL", ""),
		DefaultTimezone: p.str("DEFAULT_TIMEZONE", DefaultTimezone),

		OpsPort: p.str("OPS_PORT", DefaultOpsPort),
	}

	cfg.Delay = domain.DelayRule{
		Value:      p.int("DELAY_VALUE", 1),
		TargetTime: p.str("DELAY_TARGET_TIME", ""),
	}
	if unit, err := domain.ParseDelayUnit(p.str("DELAY_UNIT", string(domain.DelayUnitDays))); err != nil {
		p.fail("DELAY_UNIT", err)
	} else {
		cfg.Delay.Unit = unit
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.DispatchInterval <= 0 {
		p.fail("DISPATCH_INTERVAL", fmt.Errorf("must be positive"))
	}
	if cfg.Delay.Value < 0 {
		p.fail("DELAY_VALUE", fmt.Errorf("must not be negative"))
	}

	if err := p.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction — APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// OpsAddr — адрес ops HTTP сервера.
func (c *Config) OpsAddr() string {
	return ":" + c.OpsPort
}

type parser struct {
	getenv func(string) string
	errs   *multierror.Error
}

func (p *parser) fail(key string, err error) {
	p.errs = multierror.Append(p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}
