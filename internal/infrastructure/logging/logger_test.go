package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/eshaffer321/slipcheck/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithComponent(&buf, config.LoggingConfig{Level: "info"}, "reconcile")

	logger.Info("decided", "status", "matched", "candidates", 2)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[INFO] [reconcile] ["), line)
	assert.Contains(t, line, "] decided status=matched candidates=2\n")
	assert.NotContains(t, line, "component=")
}

func TestConsoleHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LoggingConfig{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]")
}

func TestConsoleHandler_GroupsAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LoggingConfig{Level: "debug"})

	logger.WithGroup("query").Debug("lookup", "sender", "Somchai Jaidee", slog.Group("tol", "days", 1))

	line := buf.String()
	assert.Contains(t, line, `query.sender="Somchai Jaidee"`)
	assert.Contains(t, line, "query.tol.days=1")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LoggingConfig{Format: "json"})

	logger.Info("hello", "request_id", "abc")

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "hello", got["msg"])
	assert.Equal(t, "abc", got["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
