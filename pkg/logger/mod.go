package logger

import (
	"context"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type ctxKey struct{}

// LoggerCtxKey is the context key under which the request logger is stored.
var LoggerCtxKey = ctxKey{}

type (
	LogLevel string

	// Logger defines the interface for structured logging across the pipeline.
	Logger interface {
		Debug(msg string, keyvals ...any)
		Info(msg string, keyvals ...any)
		Warn(msg string, keyvals ...any)
		Error(msg string, keyvals ...any)
		With(keyvals ...any) Logger
	}

	// loggerImpl implements Logger using charm logger
	loggerImpl struct {
		charmLogger *charmlog.Logger
	}
)

const (
	DebugLevel    LogLevel = "debug"
	InfoLevel     LogLevel = "info"
	WarnLevel     LogLevel = "warn"
	ErrorLevel    LogLevel = "error"
	DisabledLevel LogLevel = "disabled"
	NoLevel       LogLevel = ""
)

func (c *LogLevel) String() string {
	return string(*c)
}

func (c *LogLevel) ToCharmlogLevel() charmlog.Level {
	switch *c {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	case DisabledLevel:
		return charmlog.Level(1000)
	default:
		return charmlog.InfoLevel
	}
}

func (l *loggerImpl) Debug(msg string, keyvals ...any) {
	l.charmLogger.Debug(msg, keyvals...)
}

func (l *loggerImpl) Info(msg string, keyvals ...any) {
	l.charmLogger.Info(msg, keyvals...)
}

func (l *loggerImpl) Warn(msg string, keyvals ...any) {
	l.charmLogger.Warn(msg, keyvals...)
}

func (l *loggerImpl) Error(msg string, keyvals ...any) {
	l.charmLogger.Error(msg, keyvals...)
}

func (l *loggerImpl) With(keyvals ...any) Logger {
	return &loggerImpl{charmLogger: l.charmLogger.With(keyvals...)}
}

type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	AddSource  bool
	TimeFormat string
}

func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stdout,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

// TestConfig returns a config suitable for unit tests: quiet and source-free.
func TestConfig() *Config {
	return &Config{
		Level:      ErrorLevel,
		Output:     io.Discard,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	charmLogger := charmlog.NewWithOptions(output, charmlog.Options{
		ReportCaller:    cfg.AddSource,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           cfg.Level.ToCharmlogLevel(),
	})
	if cfg.JSON {
		charmLogger.SetFormatter(charmlog.JSONFormatter)
	} else {
		charmLogger.SetFormatter(charmlog.TextFormatter)
	}
	return &loggerImpl{charmLogger: charmLogger}
}

var defaultLogger = NewLogger(DefaultConfig())

// Init replaces the process-wide default logger.
func Init(cfg *Config) {
	defaultLogger = NewLogger(cfg)
}

// ContextWithLogger returns a context carrying the given logger.
func ContextWithLogger(ctx context.Context, log Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, log)
}

// FromContext returns the logger stored in the context, or the process default
// when none is present.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if log, ok := ctx.Value(LoggerCtxKey).(Logger); ok && log != nil {
			return log
		}
	}
	return defaultLogger
}

func GetDefault() Logger {
	return defaultLogger
}
