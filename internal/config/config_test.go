package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDir(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("NODEFS_CONFIG_DIR", "")
		dir := ConfigDir()
		assert.NotEmpty(t, dir)
		assert.True(t, strings.HasSuffix(dir, ".nodefs"), "should end with .nodefs")
	})

	t.Run("override with NODEFS_CONFIG_DIR", func(t *testing.T) {
		t.Setenv("NODEFS_CONFIG_DIR", "/tmp/test-nodefs-config")
		assert.Equal(t, "/tmp/test-nodefs-config", ConfigDir())
		assert.Equal(t, "/tmp/test-nodefs-config/settings.yaml", SettingsPath())
	})
}

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, "none", s.LogLevel)
	assert.Equal(t, 0, s.MaxWorkers)
	assert.Equal(t, 5007*time.Millisecond, s.WatchInterval)
	assert.Equal(t, 100*time.Millisecond, s.RmRetryDelay)
	assert.Equal(t, 32, s.OpendirBufferSize)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *s)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nmax_workers: 4\nwatch_interval: 250ms\n"), 0600))
	t.Setenv("NODEFS_MAX_WORKERS", "8")

	s, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 8, s.MaxWorkers, "environment wins over the file")
	assert.Equal(t, 250*time.Millisecond, s.WatchInterval)
	assert.Equal(t, 32, s.OpendirBufferSize)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_workers: [oops"), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("NODEFS_CONFIG_DIR", t.TempDir())

	s := Default()
	s.MaxWorkers = 3
	s.LogLevel = "info"
	require.NoError(t, Save(&s))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, s, *loaded)
}

func TestSettingsSet(t *testing.T) {
	s := Default()
	require.NoError(t, s.Set("max_workers", "7"))
	require.NoError(t, s.Set("watch_interval", "2s"))
	require.NoError(t, s.Set("nfs_listen", "127.0.0.1:2049"))
	assert.Equal(t, 7, s.MaxWorkers)
	assert.Equal(t, 2*time.Second, s.WatchInterval)
	assert.Equal(t, "127.0.0.1:2049", s.NFSListen)

	before := s
	assert.Error(t, s.Set("no_such_key", "1"))
	assert.Error(t, s.Set("max_workers", "many"))
	assert.Equal(t, before, s)
}

func TestLoadFileIgnoresEnvironment(t *testing.T) {
	t.Setenv("NODEFS_CONFIG_DIR", t.TempDir())
	t.Setenv("NODEFS_MAX_WORKERS", "9")

	s := Default()
	s.MaxWorkers = 2
	require.NoError(t, Save(&s))

	fromFile, err := LoadFile()
	require.NoError(t, err)
	assert.Equal(t, 2, fromFile.MaxWorkers)

	effective, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, effective.MaxWorkers)
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.InfoLevel)

	var buf bytes.Buffer
	ConfigureLogging("warn", &buf)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	logrus.Warn("visible")
	logrus.Info("hidden")
	assert.Contains(t, buf.String(), "visible")
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	ConfigureLogging("none", &buf)
	logrus.Error("discarded")
	assert.Empty(t, buf.String())
}
