package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBracketEncoder(t *testing.T) {
	var buf bytes.Buffer
	l := zap.New(newCore(&buf, zapcore.InfoLevel), zap.AddCaller()).Named("capture")

	l.Info("capture started")
	l.Debug("dropped")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "["), line)
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "[capture]")
	assert.Contains(t, line, "logger_test.go")
	assert.True(t, strings.HasSuffix(line, " capture started\n"), line)
	assert.NotContains(t, line, "dropped")
}

func TestLoggerUsableBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("hello %s", "world")
		Warn("warn %d", 1)
		Debug("debug")
		Error("error")
	})
}
