package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(OutputLoggerOption(&buf), LevelLoggerOption(WarnLevel))

	assert.Equal(t, WarnLevel, log.GetLevel())
	assert.False(t, log.IsLevelEnabled(DebugLevel))
	assert.True(t, log.IsLevelEnabled(ErrorLevel))

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.WithFields(map[string]any{"kind": "relay"}).Warn("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), "kind=relay")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(OutputLoggerOption(&buf), FormatLoggerOption(JSONFormat))
	log.Infof("connect %s", "proxy:8080")
	assert.Contains(t, buf.String(), `"msg":"connect proxy:8080"`)
}

func TestNopLogger(t *testing.T) {
	log := Nop().WithFields(map[string]any{"a": 1})
	assert.False(t, log.IsLevelEnabled(ErrorLevel))
	assert.False(t, log.IsLevelEnabled(DebugLevel))
	log.Error("dropped")
	log.Fatal("does not exit")
}
