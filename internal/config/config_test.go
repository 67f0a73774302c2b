package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-alert-service/internal/ratelimit"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Empty(t, cfg.Kafka.Broker)
	assert.Equal(t, "medical_errors", cfg.Kafka.Topic)
	assert.Equal(t, "medical_monitoring", cfg.Kafka.MonitoringTopic)
	assert.Equal(t, ":8080", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, 500, cfg.Pipeline.QueueSize)
	assert.Equal(t, 10, cfg.Pipeline.MaxWorkers)
	assert.Equal(t, 100, cfg.Pipeline.HistoryCapacity)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.DispatchTimeout)
	assert.Equal(t, 25, cfg.Telegram.RatePerSecond)
	assert.Equal(t, ratelimit.Limit{Limit: 10, Window: time.Minute}, cfg.RateLimits["email"])
	assert.Equal(t, ratelimit.Limit{Limit: 5, Window: time.Minute}, cfg.RateLimits["voice"])
	assert.Equal(t, ratelimit.Limit{Limit: 30, Window: time.Minute}, cfg.RateLimits["chat"])
	assert.Equal(t, ratelimit.Limit{Limit: 60, Window: time.Minute}, cfg.RateLimits["webhook"])
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"KAFKA_BROKER":        "kafka:9092",
		"RATE_LIMIT_VOICE":    "2/30000",
		"DISPATCH_TIMEOUT_MS": "250",
		"EMAIL_SMTP_PORT":     "587",
		"TEAMS_FILE":          "/etc/medical/teams.yaml",
	}))
	require.NoError(t, err)

	assert.Equal(t, "kafka:9092", cfg.Kafka.Broker)
	assert.Equal(t, ratelimit.Limit{Limit: 2, Window: 30 * time.Second}, cfg.RateLimits["voice"])
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.DispatchTimeout)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "/etc/medical/teams.yaml", cfg.Pipeline.TeamsFile)
}

func TestFromEnv_Invalid(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"malformed rate limit": {"RATE_LIMIT_CHAT": "thirty"},
		"zero window":          {"RATE_LIMIT_EMAIL": "10/0"},
		"bad integer":          {"QUEUE_SIZE": "lots"},
		"zero workers":         {"MAX_WORKERS": "0"},
		"relative base path":   {"API_BASE_PATH": "api"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}
