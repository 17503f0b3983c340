package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    port: 5432
    database: cleanmatch
    user: cleanmatch
  redis:
    address: localhost:6379
workers:
  rank-candidates:
    enabled: true
    timeout: 5000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.False(t, cfg.Database.Elasticsearch.Enabled())

	assert.Equal(t, 25.0, cfg.Matching.CapDistanceMiles)
	assert.Equal(t, 3.5, cfg.Matching.NeutralRating)
	assert.Equal(t, 60, cfg.Matching.ExperienceCapMonths)
	assert.Equal(t, 100, cfg.Matching.JobHistoryCapCount)
	assert.Equal(t, 50.0, cfg.Matching.PriceOverageThresholdPct)

	assert.Equal(t, "providers", cfg.Directory.SearchIndex)
	assert.Equal(t, 5, cfg.Reservation.MaxAttempts)

	w := cfg.Workers["rank-candidates"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5000, w.Timeout)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_MatchingOverrides(t *testing.T) {
	body := minimalYAML + `
matching:
  cap_distance_miles: 40
  neutral_rating: 3
`
	t.Setenv("MATCHING_JOB_HISTORY_CAP_COUNT", "50")

	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 40.0, cfg.Matching.CapDistanceMiles)
	assert.Equal(t, 3.0, cfg.Matching.NeutralRating)
	assert.Equal(t, 50, cfg.Matching.JobHistoryCapCount)
	assert.Equal(t, 60, cfg.Matching.ExperienceCapMonths)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6380")
	body := minimalYAML + `
notifications:
  sns:
    ops_topic_arn: ${TEST_TOPIC}
`
	body = replaceRedis(body, "${TEST_REDIS_ADDR}")
	t.Setenv("TEST_TOPIC", "arn:aws:sns:us-east-1:123:ops")

	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Database.Redis.Address)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:ops", cfg.Notifications.SNS.OpsTopicARN)
}

func replaceRedis(body, addr string) string {
	return strings.Replace(body, "address: localhost:6379", "address: "+addr, 1)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing broker",
			body: `
database:
  postgres: {host: localhost, database: x, user: x}
  redis: {address: localhost:6379}
`,
		},
		{
			name: "invalid matching knob",
			body: minimalYAML + `
matching:
  cap_distance_miles: -1
`,
		},
		{
			name: "tracing without endpoint",
			body: minimalYAML + `
observability:
  tracing:
    enabled: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestWorkerConfigHelpers(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"notify-no-match": {Enabled: false, Timeout: 1000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "notify-no-match"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "unknown").Timeout)
	assert.Equal(t, time.Second, GetDuration(GetWorkerConfig(cfg, "notify-no-match").Timeout))
}
