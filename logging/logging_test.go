package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "market.log")
	logger, closeFn, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("frame committed", zap.Uint64("version", 7))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"frame committed"`)
	assert.Contains(t, string(data), `"version":7`)
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.log")
	logger, closeFn, err := New(Options{Level: "warn", File: path})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_NoSinks(t *testing.T) {
	logger, closeFn, err := New(Options{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closeFn())
}

func TestNew_CloseFlushesAndReleasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.log")
	logger, closeFn, err := New(Options{
		Level:  "info",
		File:   path,
		Fields: []zap.Field{zap.String("network", "testnet")},
	})
	require.NoError(t, err)

	logger.Info("diamond loaded")
	require.NoError(t, closeFn())
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"network":"testnet"`)

	// The handle is gone: writes after close are dropped, not appended.
	logger.Info("after close")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close")
}

func TestInstall_RestoresPreviousGlobal(t *testing.T) {
	before := zap.L()
	logger, closeFn, err := Install(Options{Level: "info", File: filepath.Join(t.TempDir(), "market.log")})
	require.NoError(t, err)
	assert.Same(t, logger, zap.L())

	require.NoError(t, closeFn())
	assert.Same(t, before, zap.L())
}
