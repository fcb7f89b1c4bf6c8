// Package logger provides the leveled logging facade used across roomrate.
// Messages are filtered by a global level and written through a zap sugared logger.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues.
	LevelWarn
	// LevelError is used for error messages.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	sugar    = newSugar("console")
)

func newSugar(format string) *zap.SugaredLogger {
	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	// Level filtering happens in this package, zap only encodes.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build zap logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Configure replaces the sink encoder ("console" or "json") and sets the level.
func Configure(level, format string) {
	s := newSugar(format)
	mu.Lock()
	old := sugar
	sugar = s
	mu.Unlock()
	_ = old.Sync()
	SetLogLevel(level)
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO.
func SetLogLevel(level string) {
	var lv LogLevel
	switch strings.ToUpper(level) {
	case "DEBUG":
		lv = LevelDebug
	case "INFO":
		lv = LevelInfo
	case "WARN":
		lv = LevelWarn
	case "ERROR":
		lv = LevelError
	case "FATAL":
		lv = LevelFatal
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		lv = LevelInfo
	}
	mu.Lock()
	logLevel = lv
	mu.Unlock()
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

func enabled(lv LogLevel) (*zap.SugaredLogger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return sugar, logLevel <= lv
}

// Debugf formats and outputs a DEBUG level message.
func Debugf(format string, v ...interface{}) {
	if s, ok := enabled(LevelDebug); ok {
		s.Debugf(format, v...)
	}
}

// Infof formats and outputs an INFO level message.
func Infof(format string, v ...interface{}) {
	if s, ok := enabled(LevelInfo); ok {
		s.Infof(format, v...)
	}
}

// Warnf formats and outputs a WARN level message.
func Warnf(format string, v ...interface{}) {
	if s, ok := enabled(LevelWarn); ok {
		s.Warnf(format, v...)
	}
}

// Errorf formats and outputs an ERROR level message.
func Errorf(format string, v ...interface{}) {
	if s, ok := enabled(LevelError); ok {
		s.Errorf(format, v...)
	}
}

// Fatalf outputs a FATAL message and terminates the program with exit code 1.
func Fatalf(format string, v ...interface{}) {
	s, _ := enabled(LevelFatal)
	s.Fatalf(format, v...)
}

// Sync flushes buffered log entries.
func Sync() {
	s, _ := enabled(LevelFatal)
	_ = s.Sync()
}
