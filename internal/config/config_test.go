package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "incident-service", cfg.App.Name)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	require.Empty(t, cfg.Postgres.DSN)
	require.Empty(t, cfg.Redis.Addr)
	require.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL())
	require.Equal(t, "@every 15m", cfg.Reconcile.Schedule)
	require.Equal(t, "incidents", cfg.Notification.NATSSubjectPrefix)
	require.True(t, cfg.Logger.Development)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")
	t.Setenv("RECONCILE_CRON", "")
	t.Setenv("RECONCILE_DRY_RUN", "true")
	t.Setenv("LOG_ENCODING", "console")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.App.Port)
	require.Zero(t, cfg.App.RequestTimeout())
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, time.Minute, cfg.Redis.IdempotencyTTL())
	require.Empty(t, cfg.Reconcile.Schedule)
	require.True(t, cfg.Reconcile.DryRun)
	require.Equal(t, "console", cfg.Logger.Encoding)
	require.Equal(t, "nats://localhost:4222", cfg.Notification.NATSURL)
}

func TestLoad_RejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Logger.Development)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	_, err := Load()
	require.Error(t, err)
}
