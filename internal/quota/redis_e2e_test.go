//go:build e2e

package quota

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisGuard_DailyLimit(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis server is not available")
	}

	prefix := "leadmailer:test:quota:" + time.Now().Format("150405.000") + ":"
	g := NewRedisGuard(RedisConfig{Client: client, KeyPrefix: prefix, Limit: 2, Enabled: true})
	t.Cleanup(func() { client.Del(context.Background(), g.key()) })

	for i := 0; i < 2; i++ {
		d, err := g.CanSendNow(ctx)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(2-i), d.Remaining)
		require.NoError(t, g.RecordSend(ctx))
	}

	d, err := g.CanSendNow(ctx)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	ttl, err := client.TTL(ctx, g.key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)
}
