package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerForwardsKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &ZapLogger{logger: zap.New(core).Sugar()}

	l.Info("judge client connected", "judgeClientId", 3, "connectionId", "c-1")
	l.With("taskId", "7").Warn("requeued")
	l.Debug("noise")
	l.Error("failed", "error", assert.AnError)

	entries := logs.All()
	if assert.Len(t, entries, 4) {
		assert.Equal(t, "judge client connected", entries[0].Message)
		assert.Equal(t, int64(3), entries[0].ContextMap()["judgeClientId"])
		assert.Equal(t, "c-1", entries[0].ContextMap()["connectionId"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, "7", entries[1].ContextMap()["taskId"])
		assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Info("x", "k", "v")
		l.Error("x")
	})
}
