package launch_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker/config"
	"activitytracker/launch"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	f, err := launch.ParseFlags("api", nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPath, f.Config)
	assert.False(t, f.Tray)

	f, err = launch.ParseFlags("api", []string{"-c", "/etc/tracker.json", "--tray", "-v", "--listen", ":9000"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, launch.Flags{Config: "/etc/tracker.json", Tray: true, Verbose: true, Listen: ":9000"}, f)

	_, err = launch.ParseFlags("api", []string{"--nope"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "nope")
}

func TestSetup(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"connection_string": "`+dir+`", "database_name": "tracker", "listen": ":5000"}`), 0o600))

	env, closeLog, err := launch.Setup("api", launch.Flags{Config: path, Listen: ":6000", LogFile: filepath.Join(dir, "api.log")})
	require.NoError(t, err)
	defer closeLog()
	assert.Equal(t, ":6000", env.Config.ListenAddr())
	assert.Equal(t, filepath.Join(dir, "api.log"), env.Config.Log.File)

	_, _, err = launch.Setup("api", launch.Flags{Config: filepath.Join(dir, "missing.json")})
	require.Error(t, err)
}
