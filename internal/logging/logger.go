package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "ESPMESH_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks ESPMESH_LOG_LEVEL environment variable.
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
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
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

// InitializeFromEnv initializes the logger from the ESPMESH_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger. Tests use this with zaptest/observer
// cores to inspect emitted entries.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info when explicitly set to something
		return zapcore.InfoLevel
	}
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

// LogLifecycle logs one step of the mesh activation or teardown sequence.
func LogLifecycle(op string, step string) {
	Debug("Mesh lifecycle step",
		zap.String("op", op),
		zap.String("step", step),
	)
}

// LogLifecycleFailure logs an engine call that returned a non-OK status.
func LogLifecycleFailure(op string, step string, err error) {
	Warn("Mesh lifecycle step failed",
		zap.String("op", op),
		zap.String("step", step),
		zap.Error(err),
	)
}

// LogMeshEvent logs an event received from the mesh engine. name is empty
// for codes outside the known event table.
func LogMeshEvent(code int32, name string, delivered bool) {
	fields := []zap.Field{
		zap.Int32("code", code),
		zap.Bool("delivered", delivered),
	}
	if name != "" {
		fields = append(fields, zap.String("event", name))
	}
	Debug("Mesh event", fields...)
}

// LogConnection logs a control connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogRequest logs a host binding request received over the control channel
func LogRequest(remoteAddr string, id int64, method string) {
	Debug("Control request",
		zap.String("remote_addr", remoteAddr),
		zap.Int64("id", id),
		zap.String("method", method),
	)
}

// RedactSecret returns a placeholder for secrets so log lines never carry
// router or AP passwords.
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return fmt.Sprintf("<redacted:%d>", len(secret))
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
