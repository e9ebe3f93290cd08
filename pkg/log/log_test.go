package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))

	assert.True(t, ValidLevel("error"))
	assert.False(t, ValidLevel("verbose"))
}

func TestJSONLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "warn")

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Str("component", "indexer").Msg("shown")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "indexer", entry["component"])
	assert.Equal(t, "warn", entry["level"])
}

func TestInitWithFile(t *testing.T) {
	file := t.TempDir() + "/slp.log"
	require.NoError(t, Init("debug", true, file))
	t.Cleanup(func() {
		Logger = NewConsoleLogger(&bytes.Buffer{}, "info")
		initComponentLoggers()
	})

	assert.Equal(t, zerolog.DebugLevel, Logger.GetLevel())
	assert.Equal(t, zerolog.DebugLevel, Storage.GetLevel())
}
