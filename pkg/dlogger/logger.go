// Package dlogger exposes a simple zap logger, with log levels
package dlogger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelWarn sets the log level to warn
	LogLevelWarn = "warn"

	// LogLevelError sets the log level to error
	LogLevelError = "error"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"
)

// ValidateLogLevel checks a log level before building a logger
func ValidateLogLevel(logLevel string) error {
	switch strings.ToLower(logLevel) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelNone:
		return nil
	default:
		return fmt.Errorf("invalid log level %q: expected one of %s, %s, %s, %s, %s",
			logLevel, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelNone)
	}
}

// GetLogger returns a console zap logger writing to stderr with the specified level
func GetLogger(logLevel string) (*zap.Logger, error) {
	if err := ValidateLogLevel(logLevel); err != nil {
		return nil, err
	}
	logLevel = strings.ToLower(logLevel)
	if logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Encoding = "console"
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zapConfig.DisableStacktrace = lvl > zapcore.DebugLevel
	zapConfig.Sampling = nil
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	return zapConfig.Build()
}

// MustGetLogger returns a zap logger with the specified level or panics
func MustGetLogger(logLevel string) *zap.Logger {
	l, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return l
}
