// Package simplelogger provides the process-wide logger. Logging is off unless the BLOCKEDIT_LOG_FILE environment variable names a file; entries are then
// appended to it as JSON lines.
package simplelogger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLogFile names the environment variable holding the log file path.
const EnvLogFile = "BLOCKEDIT_LOG_FILE"

var (
	mu      sync.Mutex
	logger  *zap.Logger
	file    *os.File
	logPath string
	level   = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Logger returns the logger for the current value of BLOCKEDIT_LOG_FILE. If it is unset, or the file cannot be opened, the logger discards everything.
func Logger() *zap.Logger {
	path := os.Getenv(EnvLogFile)

	mu.Lock()
	defer mu.Unlock()

	if logger != nil && path == logPath {
		return logger
	}
	if file != nil {
		_ = file.Close()
		file = nil
	}
	logger, logPath = build(path), path
	return logger
}

func build(path string) *zap.Logger {
	if path == "" {
		return zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zap.NewNop()
	}
	file = f

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), level)
	return zap.New(core)
}

// Log logs a printf-style message at info level.
func Log(format string, args ...any) {
	Logger().Sugar().Infof(format, args...)
}

// SetLevel sets the minimum level ("debug", "info", "warn", "error"). Unknown values mean info.
func SetLevel(s string) {
	level.SetLevel(ParseLevel(s))
}

// ParseLevel converts a level name to a zapcore.Level.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
