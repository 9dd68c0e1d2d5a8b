package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exportcheck/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func bufferLogger(t *testing.T, buf *bytes.Buffer, level string) *slog.Logger {
	t.Helper()
	logger, err := createLogger(config.LoggingConfig{Level: level, Output: "console"}, buf)
	require.NoError(t, err)
	return logger
}

func TestTraceAndRunIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(t, &buf, "debug")

	ctx, runID := StartRun(context.Background())
	logger.InfoContext(ctx, "poll observation")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, runID, entry["run_id"])
	assert.Equal(t, runID, entry["trace_id"], "run id doubles as trace id")

	buf.Reset()
	ctx = WithTraceID(context.Background(), "req-123")
	ctx, runID = StartRun(ctx)
	logger.With("component", "runner").InfoContext(ctx, "with attrs")

	entry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "req-123", entry["trace_id"])
	assert.Equal(t, runID, entry["run_id"])
	assert.Equal(t, "runner", entry["component"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warning", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := bufferLogger(t, &buf, tt.level)

			logger.Debug("debug-line")
			logger.Info("info-line")
			logger.Warn("warn-line")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug-line"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info-line"))
			assert.Equal(t, tt.wantWarn, strings.Contains(out, "warn-line"))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetRunID(ctx))

	ctx = EnsureTraceID(ctx)
	traceID := GetTraceID(ctx)
	assert.Len(t, traceID, 36)
	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing trace id is kept")

	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithError(WithComponent(logger, "ingest"), assert.AnError).Info("x")
	assert.Contains(t, buf.String(), `"component":"ingest"`)
	assert.Contains(t, buf.String(), assert.AnError.Error())

	assert.Same(t, logger, WithError(logger, nil))
}
