package logger

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// secretKeys name log fields whose values are masked before they are written.
var secretKeys = map[string]struct{}{
	"api_key":      {},
	"access_token": {},
	"token":        {},
	"password":     {},
}

type ZapLogger struct {
	log *zap.SugaredLogger
}

var zapLogger *ZapLogger

func NewLogger(config zap.Config) (*ZapLogger, error) {
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync() //nolint
	logger = logger.WithOptions(zap.AddCallerSkip(2))
	zapLogger = &ZapLogger{log: logger.Sugar()}
	return zapLogger, nil
}

// ReplaceCore sends every entry of the shared logger to core until the
// returned restore func runs.
func ReplaceCore(core zapcore.Core) (restore func()) {
	prev := zapLogger
	zapLogger = &ZapLogger{log: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()}
	return func() { zapLogger = prev }
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

// With returns a child logger carrying the given key/value pairs on every entry.
func (l *ZapLogger) With(values ...any) *ZapLogger {
	return &ZapLogger{log: l.log.With(redact(values)...)}
}

func (l *ZapLogger) Panic(message string, values ...any) {
	l.log.Panicw(message, redact(values)...)
}

func (l *ZapLogger) Fatal(error error, values ...any) {
	l.log.Fatalw(error.Error(), redact(values)...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, redact(values)...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, redact(values)...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, redact(values)...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, redact(values)...)
}

// Printf serves fasthttp's server logger.
func (l *ZapLogger) Printf(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

// redact masks the values of secret keys. values is left untouched.
func redact(values []any) []any {
	var out []any
	for i := 0; i+1 < len(values); i += 2 {
		k, ok := values[i].(string)
		if !ok {
			continue
		}
		if _, secret := secretKeys[strings.ToLower(k)]; !secret {
			continue
		}
		if out == nil {
			out = slices.Clone(values)
		}
		out[i+1] = Mask(fmt.Sprint(values[i+1]))
	}
	if out == nil {
		return values
	}
	return out
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
