package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"klinefetch/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

// go test -v --run TestNewJSONConsole
func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("page fetched", zap.Int("rows", 1000))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "page fetched", entry["msg"])
	assert.EqualValues(t, 1000, entry["rows"])
}

func TestNewDevUsesConsoleEncoding(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "debug", Environment: "dev"}, &buf)
	require.NoError(t, err)

	log.Debug("cursor moved")
	assert.Contains(t, buf.String(), "cursor moved")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

// go test -v --run TestNewWritesFile
func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "klinefetch.log")
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "info", Format: "console", OutputFile: path}, &buf)
	require.NoError(t, err)

	log.Info("fetch complete", zap.String("symbol", "BTCUSDT"))
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	assert.Equal(t, "BTCUSDT", entry["symbol"])
}
