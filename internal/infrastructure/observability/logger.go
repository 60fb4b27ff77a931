// Package observability wires logging, metrics and tracing for the graph
// service.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"activegraph/internal/config"
	"activegraph/internal/errors"
)

// Logger bundles a zap logger with the level that controls it, so the level
// can change when the configuration is reloaded.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// NewLogger builds a JSON (production) or console (development) logger.
func NewLogger(cfg config.Logging) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atomic := zap.NewAtomicLevelAt(level)

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = atomic

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Internal(errors.CodeInternalError.String(), "failed to build logger").
			WithCause(err).
			Build()
	}
	return &Logger{Logger: logger, level: atomic}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// Level returns the current level.
func (l *Logger) Level() zapcore.Level { return l.level.Level() }

// SetLevel changes the level of every logger derived from l.
func (l *Logger) SetLevel(level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(parsed)
	return nil
}

// OnConfigChange applies a reloaded logging level.
func (l *Logger) OnConfigChange(cfg *config.Config) {
	previous := l.Level()
	if err := l.SetLevel(cfg.Logging.Level); err != nil {
		l.Warn("Ignoring invalid log level", zap.String("level", cfg.Logging.Level), zap.Error(err))
		return
	}
	if previous != l.Level() {
		l.Info("Log level changed",
			zap.String("from", previous.String()),
			zap.String("to", l.Level().String()))
	}
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, errors.Validation(errors.CodeConfigInvalid.String(), "invalid log level").
			WithResource("config").
			WithDetails(level).
			WithCause(err).
			Build()
	}
	return parsed, nil
}
