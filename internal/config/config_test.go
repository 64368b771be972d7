package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/leadmailer/internal/domain"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, 5*time.Minute, cfg.DispatchInterval)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, 5.0, cfg.SendRatePerSec)
	assert.Equal(t, int64(0), cfg.DailySendLimit)
	assert.True(t, cfg.SendingEnabled)
	assert.True(t, cfg.LeaderLock)
	assert.Equal(t, 15*time.Second, cfg.TransportTimeout)
	assert.Equal(t, "America/Sao_Paulo", cfg.DefaultTimezone)
	assert.Equal(t, ":8081", cfg.OpsAddr())
	assert.Equal(t, domain.DelayRule{Value: 1, Unit: domain.DelayUnitDays}, cfg.Delay)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"APP_ENV":             "production",
		"SERVICE_NAME":        "Acme",
		"DISPATCH_INTERVAL":   "30s",
		"DISPATCH_BATCH_SIZE": "50",
		"SEND_RATE_PER_SEC":   "0.5",
		"DAILY_SEND_LIMIT":    "300",
		"SENDING_ENABLED":     "false",
		"DELAY_VALUE":         "2",
		"DELAY_UNIT":          "Weeks",
		"DELAY_TARGET_TIME":   "09:30",
		"OPS_PORT":            "9000",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "Acme", cfg.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.DispatchInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 0.5, cfg.SendRatePerSec)
	assert.Equal(t, int64(300), cfg.DailySendLimit)
	assert.False(t, cfg.SendingEnabled)
	assert.Equal(t, domain.DelayRule{Value: 2, Unit: domain.DelayUnitWeeks, TargetTime: "09:30"}, cfg.Delay)
	assert.Equal(t, ":9000", cfg.OpsAddr())
}

func TestFromEnv_CollectsAllErrors(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{
		"DISPATCH_INTERVAL":   "soon",
		"DISPATCH_BATCH_SIZE": "many",
		"SENDING_ENABLED":     "maybe",
		"DELAY_UNIT":          "months",
	}))
	require.Error(t, err)

	for _, key := range []string{"DISPATCH_INTERVAL", "DISPATCH_BATCH_SIZE", "SENDING_ENABLED", "DELAY_UNIT"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestFromEnv_RejectsNegativeDelay(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"DELAY_VALUE": "-3"}))
	assert.ErrorContains(t, err, "DELAY_VALUE")
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVICE_NAME=FromDotEnv\nDISPATCH_BATCH_SIZE=7\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("APP_ENV", "")
	t.Setenv("DISPATCH_BATCH_SIZE", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "FromDotEnv", cfg.ServiceName)
	assert.Equal(t, 9, cfg.BatchSize, "environment wins over .env")

	// godotenv выставляет переменные процесса; убираем за собой
	t.Cleanup(func() { _ = os.Unsetenv("SERVICE_NAME") })
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.NoError(t, err)
}
