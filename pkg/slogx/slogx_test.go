package slogx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexorahq/provision/pkg/idx"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"Warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{" info ", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, ParseLevel(tc.in), "level %q", tc.in)
	}
}

func TestNewEmitsServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Service: "provision-service",
		Version: "v0.1.0",
		Env:     "test",
		Level:   "debug",
		Writer:  &buf,
	})

	logger.Debug("booted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "provision-service", entry["service"])
	require.Equal(t, "v0.1.0", entry["version"])
	require.Equal(t, "booted", entry["msg"])
}

func TestWithCorrelationIDThreadsThroughLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Writer: &buf})

	corrID := idx.New()
	ctx := WithContext(context.Background(), logger)
	ctx = WithCorrelationID(ctx, corrID)
	require.Equal(t, corrID, CorrelationID(ctx))

	FromContext(ctx).Info("linkage checked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, corrID.String(), entry["corr_id"])
}
