package repo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/leadmailer/internal/quota"
)

// DispatchLockKey — ключ advisory lock диспетчера.
const DispatchLockKey int64 = 424242

// LeaderLock разрешает отправку только экземпляру, который держит
// session-level advisory lock в Postgres.
//
// Lock живёт, пока жива сессия, поэтому LeaderLock держит выделенное
// соединение из пула. При разрыве соединения лидерство теряется и
// захватывается заново на следующем цикле (этим или другим экземпляром).
type LeaderLock struct {
	pool   *pgxpool.Pool
	key    int64
	logger *slog.Logger

	mu   sync.Mutex
	conn *pgxpool.Conn
}

// NewLeaderLock создаёт LeaderLock.
func NewLeaderLock(pool *pgxpool.Pool, key int64, logger *slog.Logger) *LeaderLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderLock{pool: pool, key: key, logger: logger}
}

// CanSendNow пытается стать (или подтвердить, что остаётся) лидером.
func (l *LeaderLock) CanSendNow(ctx context.Context) (quota.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		if err := l.conn.Ping(ctx); err == nil {
			return quota.Allow(), nil
		}
		l.logger.Warn("leader connection lost, lock released")
		l.conn.Release()
		l.conn = nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return quota.Decision{}, fmt.Errorf("acquire connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&ok); err != nil {
		conn.Release()
		return quota.Decision{}, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return quota.Deny("another instance holds the dispatch lock"), nil
	}

	l.conn = conn
	l.logger.Info("acquired dispatch leadership", "lock_key", l.key)
	return quota.Allow(), nil
}

// Release снимает lock и возвращает соединение в пул.
func (l *LeaderLock) Release(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return
	}
	if _, err := l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
		l.logger.Warn("failed to release advisory lock", "error", err)
	}
	l.conn.Release()
	l.conn = nil
}
