// Package metrics provides structured logging and observability helpers for
// the filevault core and its reference server/CLI bindings.
package metrics

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level represents a logging level, mirrored onto logrus' level type so
// call sites don't need to import logrus directly.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent // Disables all logging
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelSilent:
		return "SILENT"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level string.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "SILENT", "OFF", "NONE":
		return LevelSilent
	default:
		return LevelInfo
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.PanicLevel + 1 // above panic: effectively silent
	}
}

// Fields represents structured log fields, aliasing logrus.Fields so a
// Logger's With(Fields{...}) reads the same as the rest of the codebase.
type Fields = logrus.Fields

// Format specifies the log output format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Logger wraps a logrus.Entry, carrying a component name the way the
// teacher's hand-rolled logger carried one, but delegating formatting,
// level filtering and field merging to logrus.
type Logger struct {
	entry *logrus.Entry
	name  string
}

// LoggerOption configures a logger.
type LoggerOption func(*loggerConfig)

type loggerConfig struct {
	out    io.Writer
	level  Level
	format Format
	fields Fields
	name   string
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(c *loggerConfig) { c.out = w }
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(c *loggerConfig) { c.level = level }
}

// WithFormat sets the output format.
func WithFormat(format Format) LoggerOption {
	return func(c *loggerConfig) { c.format = format }
}

// WithFields sets default fields for all log entries.
func WithFields(fields Fields) LoggerOption {
	return func(c *loggerConfig) { c.fields = fields }
}

// WithName sets the logger's component name.
func WithName(name string) LoggerOption {
	return func(c *loggerConfig) { c.name = name }
}

// NewLogger creates a new logger with the given options, backed by a
// dedicated logrus.Logger instance (not the package-global one) so callers
// can run independent loggers in tests without cross-talk.
func NewLogger(opts ...LoggerOption) *Logger {
	cfg := &loggerConfig{
		out:    os.Stdout,
		level:  LevelInfo,
		format: FormatText,
		fields: Fields{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base := logrus.New()
	base.SetOutput(cfg.out)
	base.SetLevel(cfg.level.logrusLevel())
	if cfg.format == FormatJSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	entry := base.WithFields(cfg.fields)
	if cfg.name != "" {
		entry = entry.WithField("logger", cfg.name)
	}

	return &Logger{entry: entry, name: cfg.name}
}

// With returns a new logger with additional fields merged in.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields), name: l.name}
}

// Named returns a new logger whose component name is nested under this
// logger's name (e.g. "clientstore.persist").
func (l *Logger) Named(name string) *Logger {
	newName := name
	if l.name != "" {
		newName = l.name + "." + name
	}
	return &Logger{entry: l.entry.WithField("logger", newName), name: newName}
}

// SetLevel changes the logging level of the underlying logrus.Logger.
func (l *Logger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(level.logrusLevel())
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(logrus.DebugLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(logrus.InfoLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(logrus.WarnLevel, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(logrus.ErrorLevel, msg, fields...) }

func (l *Logger) log(level logrus.Level, msg string, extraFields ...Fields) {
	entry := l.entry
	for _, f := range extraFields {
		entry = entry.WithFields(f)
	}
	entry.Log(level, msg)
}

// --- Global Logger ---

var (
	globalLogger   *Logger
	globalLoggerMu sync.RWMutex
)

func init() {
	globalLogger = NewLogger()
}

// SetLogger sets the global logger.
func SetLogger(l *Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = l
}

// GetLogger returns the global logger.
func GetLogger() *Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func Debug(msg string, fields ...Fields) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Fields)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Fields)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...Fields) { GetLogger().Error(msg, fields...) }

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return NewLogger(WithLevel(LevelSilent), WithOutput(io.Discard))
}

// TestLogger returns a logger suitable for testing (debug level, text format).
func TestLogger(w io.Writer) *Logger {
	return NewLogger(WithOutput(w), WithLevel(LevelDebug), WithFormat(FormatText))
}

// ProductionLogger returns a logger suitable for production (info level, JSON format).
func ProductionLogger(w io.Writer) *Logger {
	return NewLogger(WithOutput(w), WithLevel(LevelInfo), WithFormat(FormatJSON))
}
