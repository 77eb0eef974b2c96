package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder used by New
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// New builds a logger for the given format. Unknown formats fall back to JSON.
func New(format Format, debugMode bool) (*zap.Logger, error) {
	switch format {
	case FormatConsole:
		return NewDevelopmentLogger(debugMode)
	case FormatJSON, "":
		return NewProductionLogger(debugMode)
	default:
		l, err := NewProductionLogger(debugMode)
		if err != nil {
			return nil, err
		}
		l.Warn("unknown_log_format", zap.String("format", string(format)))
		return l, nil
	}
}

// NewProductionLogger creates a JSON logger suitable for piping into log collectors
func NewProductionLogger(debugMode bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = levelFor(debugMode)
	cfg.Encoding = string(FormatJSON)
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	// CLI output goes to stdout, logs stay on stderr
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build production logger: %w", err)
	}
	return l, nil
}

// NewDevelopmentLogger creates a console logger for interactive use
func NewDevelopmentLogger(debugMode bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = levelFor(debugMode)
	cfg.DisableStacktrace = !debugMode

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build development logger: %w", err)
	}
	return l, nil
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Sync flushes buffered entries. Safe to call with a nil logger.
func Sync(l *zap.Logger) error {
	if l == nil {
		return nil
	}
	return l.Sync()
}

func levelFor(debugMode bool) zap.AtomicLevel {
	if debugMode {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel)
}
