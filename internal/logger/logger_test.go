package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestWithContextAddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", "json")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = context.WithValue(ctx, UserIDKey, int64(42))
	WithContext(ctx).Info("hold created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hold created", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, float64(42), line["user_id"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", "text")

	Get().Debug("noise")
	assert.Empty(t, buf.String())
}
