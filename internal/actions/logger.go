// Package actions writes GitHub Actions workflow commands: diagnostic
// annotations and step outputs.
package actions

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var commandEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// EscapeData escapes a workflow command payload so it stays on one line.
func EscapeData(s string) string {
	return commandEscaper.Replace(s)
}

// Logger writes workflow-command diagnostics.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger returns a Logger writing to w at debug level. Only the message is
// encoded; the command prefix is part of it.
func NewLogger(w io.Writer) *Logger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel)
	return &Logger{sugar: zap.New(core).Sugar()}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Debugf writes a ::debug:: line.
func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Debug("::debug::" + EscapeData(fmt.Sprintf(template, args...)))
}

// Infof writes a plain line.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

// Warnf writes a ::warning:: line.
func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Warn("::warning::" + EscapeData(fmt.Sprintf(template, args...)))
}

// Errorf writes an ::error:: line.
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Error("::error::" + EscapeData(fmt.Sprintf(template, args...)))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
