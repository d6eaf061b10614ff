package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Warn("cache write failed", map[string]interface{}{"path": "/tmp/cache.json", "entries": 3})
	log.Error("history write failed", errors.New("disk full"), nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "cache write failed", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "/tmp/cache.json", ctx["path"])
	assert.EqualValues(t, 3, ctx["entries"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
}

func TestNopLoggerIsSilent(t *testing.T) {
	log := NewNop()
	log.Debug("ignored", nil)
	log.Info("ignored", map[string]interface{}{"k": "v"})
	assert.NoError(t, log.Sync())
}
