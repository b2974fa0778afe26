package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"activitytracker/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, `{
		"connection_string": "mongodb://localhost:27017",
		"database": "tracker",
		"afk": {"idle_threshold_seconds": 60},
		"cors": {"origins": ["http://localhost:3000"], "supports_credentials": true}
	}`)
	cfg, err := config.Load(p)
	require.NoError(t, err)
	require.Equal(t, "tracker", cfg.DBName())
	require.Equal(t, time.Minute, cfg.IdleThreshold())
	require.Equal(t, config.DefaultPollInterval, cfg.PollInterval())
	require.Equal(t, config.DefaultListen, cfg.ListenAddr())
	require.Equal(t, 7*24*time.Hour, cfg.SessionLifetime())
	require.True(t, cfg.CORS.SupportsCredentials)
	require.Equal(t, config.DefaultStoreReadyTimeout, cfg.StoreReadyTimeout())

	cfg.StoreReadyTimeoutSeconds = 2
	require.Equal(t, 2*time.Second, cfg.StoreReadyTimeout())
}

func TestLoad_DatabaseNameWins(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, `{"connection_string": "x.db", "database_name": "a", "database": "b"}`)
	cfg, err := config.Load(p)
	require.NoError(t, err)
	require.Equal(t, "a", cfg.DBName())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, `{"database_name": "a"}`))
	require.ErrorContains(t, err, "connection_string")

	_, err = config.Load(writeConfig(t, `{"connection_string": "x.db"}`))
	require.ErrorContains(t, err, "database name")
}
