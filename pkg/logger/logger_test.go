package logger

import (
	"bytes"
	"log/slog"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, "ride-service", "info", "json")

	l.Info("seats reserved", "ride_id", "r-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ride-service", line["service"])
	assert.Equal(t, "r-1", line["ride_id"])
	assert.Equal(t, "seats reserved", line["msg"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, "svc", "error", "text")

	l.Info("dropped")
	assert.Empty(t, buf.String())
}
