package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "leadmailer:quota:"
	counterTTL       = 48 * time.Hour
)

// RedisGuard ограничивает число отправок в сутки (UTC).
//
// Счётчик хранится в Redis по ключу prefix + дата, поэтому лимит общий
// для всех экземпляров сервиса. limit <= 0 — без ограничений.
type RedisGuard struct {
	client    redis.Cmdable
	keyPrefix string
	limit     int64
	enabled   bool
	now       func() time.Time
}

// RedisConfig — конфигурация RedisGuard.
type RedisConfig struct {
	Client    redis.Cmdable
	KeyPrefix string // default: "leadmailer:quota:"
	Limit     int64
	Enabled   bool
	Now       func() time.Time
}

// NewRedisGuard создаёт RedisGuard.
func NewRedisGuard(cfg RedisConfig) *RedisGuard {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RedisGuard{
		client:    cfg.Client,
		keyPrefix: prefix,
		limit:     cfg.Limit,
		enabled:   cfg.Enabled,
		now:       now,
	}
}

// CanSendNow проверяет флаг отправки и дневной счётчик.
func (g *RedisGuard) CanSendNow(ctx context.Context) (Decision, error) {
	if !g.enabled {
		return Deny("sending disabled by configuration"), nil
	}
	if g.limit <= 0 {
		return Allow(), nil
	}

	used, err := g.Used(ctx)
	if err != nil {
		return Decision{}, err
	}
	if used >= g.limit {
		return Deny(fmt.Sprintf("%v: %d/%d", ErrQuotaExceeded, used, g.limit)), nil
	}
	return AllowUpTo(g.limit - used), nil
}

// Used возвращает число отправок за текущие сутки.
func (g *RedisGuard) Used(ctx context.Context) (int64, error) {
	val, err := g.client.Get(ctx, g.key()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get quota counter: %w", err)
	}
	used, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quota counter %q: %w", val, err)
	}
	return used, nil
}

// RecordSend увеличивает счётчик после успешной отправки.
func (g *RedisGuard) RecordSend(ctx context.Context) error {
	key := g.key()
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, counterTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("incr quota counter: %w", err)
	}
	return nil
}

func (g *RedisGuard) key() string {
	return g.keyPrefix + g.now().UTC().Format("2006-01-02")
}
