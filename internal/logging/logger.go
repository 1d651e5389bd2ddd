package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "JSONUPNP_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks JSONUPNP_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitializeFromEnv initializes the logger from the JSONUPNP_LOG_LEVEL
// environment variable. CLI commands use this to stay silent by default.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogDiscovery logs the first sighting of a device
func LogDiscovery(id, role, location, addr string) {
	Info("Discovered device",
		zap.String("uuid", id),
		zap.String("device_type", role),
		zap.String("location", location),
		zap.String("addr", addr),
	)
}

// LogRemoval logs a device removed by the staleness sweep
func LogRemoval(id string, age time.Duration) {
	Info("Removing stale device",
		zap.String("uuid", id),
		zap.Duration("age", age),
	)
}

// LogSSDPMessage logs an inbound SSDP datagram after classification
func LogSSDPMessage(kind, from, usn, target string) {
	Debug("SSDP message",
		zap.String("kind", kind),
		zap.String("from", from),
		zap.String("usn", usn),
		zap.String("target", target),
	)
}

// LogSSDPDrop logs a datagram that was ignored by the router
func LogSSDPDrop(reason, from, usn string) {
	Debug("SSDP message dropped",
		zap.String("reason", reason),
		zap.String("from", from),
		zap.String("usn", usn),
	)
}

// LogSearchResponse logs a jittered M-SEARCH reply
func LogSearchResponse(target, to string, delay time.Duration) {
	Debug("Sent search response",
		zap.String("target", target),
		zap.String("to", to),
		zap.Duration("delay", delay),
	)
}

// LogHTTPRequest logs a completed API request
func LogHTTPRequest(remoteAddr, method, path string, statusCode int, duration time.Duration) {
	Info("HTTP request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", duration),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
