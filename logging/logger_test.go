package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivooifo-droid/defacto-backend/config"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.InfoLevel, &buf)

	logger.Debug().Msg("debug message")
	assert.Empty(t, buf.String())

	logger.Info().Msg("info message")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "info message", rec["message"])
	assert.Contains(t, rec, "time")
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "debug", Format: FormatJSON}

	logger, closer, err := New(cfg, &buf, true)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug().Str("path", "/health").Msg("request")
	assert.Contains(t, buf.String(), `"path":"/health"`)
	assert.Contains(t, buf.String(), `"level":"debug"`)
}

func TestNewHumanFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "info", Format: FormatHuman}

	logger, closer, err := New(cfg, &buf, true)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Int("port", 8080).Msg("starting")
	out := buf.String()
	assert.Contains(t, out, "starting")
	assert.Contains(t, out, "port=8080")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defacto.log")
	cfg := config.LoggingConfig{Level: "info", Format: FormatHuman, File: path, MaxSize: 1}

	var buf bytes.Buffer
	logger, closer, err := New(cfg, &buf, true)
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
	assert.Contains(t, buf.String(), "to file")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, closer, err := New(config.LoggingConfig{Level: "loud"}, nil, true)
	assert.Error(t, err)
	assert.NotNil(t, closer)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"Error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := GetLogger()
	t.Cleanup(func() { SetGlobal(prev) })

	SetGlobal(NewLogger(zerolog.InfoLevel, &buf))
	l := WithComponent("engine")
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"engine"`)
}
