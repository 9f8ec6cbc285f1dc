// Package jsonlog provides a structured JSON logging backend built on zap.
// Values stored under credential-like keys are redacted before they are written.
package jsonlog

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JSONLogger implements LoggerInstance using a sugared zap logger.
type JSONLogger struct {
	sugar *zap.SugaredLogger
}

// JSONLoggerParams contains configuration for creating a JSONLogger.
type JSONLoggerParams struct {
	Debug   bool
	Service string
}

// NewJSONLogger builds a production zap logger writing JSON to stderr.
func NewJSONLogger(params JSONLoggerParams) (*JSONLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if params.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	sugar := z.Sugar()
	if params.Service != "" {
		sugar = sugar.With("service", params.Service)
	}
	return &JSONLogger{sugar: sugar}, nil
}

func (l *JSONLogger) Log(message string, keyvals ...any) {
	l.sugar.Infow(message, sanitize(keyvals)...)
}

func (l *JSONLogger) Debug(message string, keyvals ...any) {
	l.sugar.Debugw(message, sanitize(keyvals)...)
}

func (l *JSONLogger) Info(message string, keyvals ...any) {
	l.sugar.Infow(message, sanitize(keyvals)...)
}

func (l *JSONLogger) Warn(message string, keyvals ...any) {
	l.sugar.Warnw(message, sanitize(keyvals)...)
}

func (l *JSONLogger) Error(message string, keyvals ...any) {
	l.sugar.Errorw(message, sanitize(keyvals)...)
}

func (l *JSONLogger) Fatal(message string, keyvals ...any) {
	l.sugar.Fatalw(message, sanitize(keyvals)...)
}

// Sync flushes buffered log entries.
func (l *JSONLogger) Sync() error {
	return l.sugar.Sync()
}

func sanitize(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := fmt.Sprint(kv[i])
		if isSecretKey(key) {
			out = append(out, key, "[REDACTED]")
			continue
		}
		out = append(out, key, kv[i+1])
	}
	return out
}

func isSecretKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range []string{"password", "secret", "token", "api_key", "apikey", "authorization"} {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
