// Package logger provides structured logging for the status server.
// Every status transition and tick fault should be traceable through this.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and encoding.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// Logger provides structured logging with context.
type Logger struct {
	z *zap.Logger
}

// New builds a logger from config. JSON format uses the zap production
// encoder; anything else uses a compact console encoder.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	z, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Wrap adapts an existing zap logger, e.g. a zaptest observer core.
func Wrap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Named returns a child logger scoped to a subsystem.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Debug logs verbose diagnostics.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// Critical logs a fault that was contained but needs operator attention.
func (l *Logger) Critical(msg string, fields ...zap.Field) {
	l.z.Error(msg, append(fields, zap.Bool("critical", true))...)
}

// Event logs a status transition for oversight.
func (l *Logger) Event(eventType string, actorID uint32, details string) {
	l.z.Info(details, zap.String("event", eventType), zap.Uint32("actor", actorID))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
