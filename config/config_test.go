package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// Requirement: defaults apply when no file or env is present.
func TestLoad_Defaults(t *testing.T) {
	// Arrange
	path := writeConfig(t, "")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, DriverFile, cfg.TokenStore.Driver)
	assert.NotEmpty(t, cfg.TokenStore.Path)
	assert.Equal(t, "default", cfg.TokenStore.Profile)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, 2*time.Minute, cfg.Profile.CacheTTL)
}

// Requirement: file values and VOLUNTEER_* env vars override defaults.
func TestLoad_FileAndEnv(t *testing.T) {
	// Arrange
	path := writeConfig(t, `
api:
  base_url: https://volunteer.example.org/api
  timeout: 5s
token_store:
  driver: Redis
redis:
  url: redis://localhost:6379/2
search:
  debounce: 150ms
`)
	t.Setenv("VOLUNTEER_LOGGING_LEVEL", "debug")
	t.Setenv("VOLUNTEER_API_TIMEOUT", "10s")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://volunteer.example.org/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, DriverRedis, cfg.TokenStore.Driver)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Redis.URL)
	assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

// Requirement: invalid settings are rejected with a named error.
func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "relative base url", body: "api:\n  base_url: /api\n", wantErr: ErrInvalidBaseURL},
		{name: "ftp base url", body: "api:\n  base_url: ftp://host/api\n", wantErr: ErrInvalidBaseURL},
		{name: "unknown driver", body: "token_store:\n  driver: etcd\n", wantErr: ErrUnknownDriver},
		{name: "redis without url", body: "token_store:\n  driver: redis\n", wantErr: ErrMissingRedisURL},
		{name: "postgres without dsn", body: "token_store:\n  driver: postgres\n", wantErr: ErrMissingDSN},
		{name: "negative timeout", body: "api:\n  timeout: -1s\n", wantErr: ErrInvalidDuration},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.body))
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
