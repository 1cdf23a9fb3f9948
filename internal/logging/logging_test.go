package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func notTerminal(t *testing.T) {
	t.Helper()
	saved := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = saved })
}

func TestNewJSON(t *testing.T) {
	notTerminal(t)
	out := filepath.Join(t.TempDir(), "log.json")
	logger, err := New(Config{Level: "debug", OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Named("pipeio").Debug("dataset written", zap.String("name", "/x"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "pipeio", entry["logger"])
	assert.Equal(t, "dataset written", entry["message"])
	assert.Equal(t, "/x", entry["name"])
}

func TestNewLevelFilters(t *testing.T) {
	notTerminal(t)
	out := filepath.Join(t.TempDir(), "log.json")
	logger, err := New(Config{Level: "warn", OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewConsoleInDevelopment(t *testing.T) {
	notTerminal(t)
	out := filepath.Join(t.TempDir(), "log.txt")
	logger, err := New(Config{Level: "info", Development: true, OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "hello")
	assert.False(t, strings.HasPrefix(line, "{"), "console output, got %q", line)
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "log level")
}

func TestSetupReplacesGlobals(t *testing.T) {
	notTerminal(t)
	before := zap.L()
	out := filepath.Join(t.TempDir(), "log.json")

	teardown, err := Setup(Config{Level: "info", OutputPaths: []string{out}})
	require.NoError(t, err)
	assert.NotSame(t, before, zap.L())
	zap.L().Info("global")

	teardown()
	assert.Same(t, before, zap.L())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "global")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.False(t, cfg.Development)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}
