package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratusbase/stratus/internal/config"
)

func TestNewLoggerConsoleOnly(t *testing.T) {
	cfg := config.LoggingConfig{Console: config.ConsoleConfig{Enabled: true, Level: "info", Format: "text"}}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewLoggerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LoggingConfig{
		Dir:  dir,
		File: config.FileConfig{Enabled: true, Level: "info", Format: "json"},
	}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Info("hello", "k", "v")
	logger.Error("broken", "k", "v")
	Shutdown()

	main, err := os.ReadFile(filepath.Join(dir, "stratus.log"))
	require.NoError(t, err)
	assert.Contains(t, string(main), "hello")
	assert.Contains(t, string(main), "broken")

	// Only warn and above land in the error file.
	errLog, err := os.ReadFile(filepath.Join(dir, "errors.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(errLog), "hello")
	assert.Contains(t, string(errLog), "broken")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("anything"))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h)

	logger.Info("routine")
	logger.Error("failure")

	assert.True(t, strings.Contains(a.String(), "routine"))
	assert.True(t, strings.Contains(a.String(), "failure"))
	assert.False(t, strings.Contains(b.String(), "routine"))
	assert.True(t, strings.Contains(b.String(), "failure"))
}

func TestMultiHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
