package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
app:
  name: school-admin-core
database:
  host: db
  user: app
  password: secret
  name: school
school_api:
  base_url: https://school.example.com
  school_id: "42"
  static_token: abc
  endpoints:
    results: /api/v2/Results
workers:
  refresh:
    interval: 90s
`))
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "batch_uploads", cfg.Redis.BatchQueue)
	require.Equal(t, ":dlq", cfg.Redis.DLQSuffix)
	require.Equal(t, "X-School-Id", cfg.SchoolAPI.SchoolHeader)
	require.Equal(t, 30*time.Second, cfg.SchoolAPI.Timeout)
	require.Equal(t, "/api/v2/Results", cfg.SchoolAPI.Endpoints.Results)
	require.Equal(t, "/api/Session/current-session", cfg.SchoolAPI.Endpoints.CurrentSession)
	require.Equal(t, 1, cfg.Workers.Batch.Concurrency)
	require.Equal(t, 90*time.Second, cfg.Workers.Refresh.Interval)
	require.Equal(t, "info", cfg.Logging.Level)

	require.Equal(t, "app:secret@tcp(db:3306)/school?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DatabaseDSN())
}

func TestParseValidates(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing base url", "school_api:\n  school_id: \"1\"\n  static_token: x\n", "base_url"},
		{"missing school", "school_api:\n  base_url: http://x\n  static_token: x\n", "school_id"},
		{"missing credentials", "school_api:\n  base_url: http://x\n  school_id: \"1\"\n  username: admin\n", "static_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorContains(t, err, tt.want)
		})
	}

	_, err := Parse([]byte("school_api: [unterminated"))
	require.ErrorContains(t, err, "failed to unmarshal config")
}
