package logger

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger and satisfies the narrow Log interfaces
// declared by the consuming packages.
type Logger struct {
	zap *zap.Logger
}

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*Logger, error) {
	if level == "" {
		return nil, errors.New("empty log level")
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{zap: zl}, nil
}

func (l *Logger) Debug(msg string, fields ...zapcore.Field) {
	l.zap.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...zapcore.Field) {
	l.zap.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zapcore.Field) {
	l.zap.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...zapcore.Field) {
	l.zap.Error(msg, fields...)
}

// Sync flushes buffered log entries; called on shutdown.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
