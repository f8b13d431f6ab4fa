package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Fatal(error error, values ...any)
	Printf(format string, args ...interface{})
}

var level = zap.NewAtomicLevelAt(zap.DebugLevel)

// The logger exists before config.Load runs, so the encoder is picked from
// APP_ENV directly: JSON in production, console lines elsewhere.
func init() {
	config := zap.NewDevelopmentConfig()
	if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		config = zap.NewProductionConfig()
		level.SetLevel(zap.InfoLevel)
	}
	config.Level = level
	config.DisableStacktrace = true

	if _, err := NewLogger(config); err != nil {
		panic(err)
	}
}

// SetLevel changes the minimum level of the shared logger at runtime.
// Unknown names leave the current level untouched and return false.
func SetLevel(name string) bool {
	var lvl zapcore.Level
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		lvl = zap.DebugLevel
	case "info":
		lvl = zap.InfoLevel
	case "warn", "warning":
		lvl = zap.WarnLevel
	case "error":
		lvl = zap.ErrorLevel
	default:
		return false
	}
	level.SetLevel(lvl)
	return true
}

// Level returns the current minimum level name.
func Level() string {
	return level.Level().String()
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().Fatal(error, values...)
}
