package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("crawler", "info", "json", &buf).With("task_id", "extract")

	l.Info("[task] fetched %d products", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "[task] fetched 3 products", rec["msg"])
	assert.Equal(t, "crawler", rec["service"])
	assert.Equal(t, "extract", rec["task_id"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("", "warn", "text", &buf)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
