package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	logger := New(Options{Output: &bytes.Buffer{}})
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	verbose := New(Options{Verbose: true, Output: &bytes.Buffer{}})
	require.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
}

func TestJSONEntriesCarryService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Options{JSON: true, Service: "whisper", Output: &buf})
	logger.Info("request", zap.Int("status", 200))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "request", entry["msg"])
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "whisper", entry["service"])
	require.EqualValues(t, 200, entry["status"])
	require.Contains(t, entry, "ts")
}

func TestConsoleOmitsTimestamp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Options{Output: &buf})
	logger.Warn("no speech detected")
	require.NoError(t, logger.Sync())

	line := strings.TrimSpace(buf.String())
	require.Contains(t, line, "WARN")
	require.True(t, strings.HasSuffix(line, "no speech detected"), line)
}
