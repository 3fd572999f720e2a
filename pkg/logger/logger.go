// Package logger builds the ectologger instance the service logs through,
// backed by a zap core for output formatting and level filtering.
package logger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
)

// Config holds the logger options.
type Config struct {
	AppName string
	Level   string
	Pretty  bool
}

// New returns an ectologger whose messages are replayed through zap. Pretty
// enables the human-readable development encoder; otherwise output is JSON.
func New(cfg Config) (ectologger.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Pretty {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.Level))
	if err == nil {
		zapCfg.Level = level
	}

	zapLogger, err := zapCfg.Build(zap.WithCaller(false))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	base := zapLogger.With(zap.String("app", cfg.AppName))

	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		emit(base, msg)
	}), nil
}

// emit replays one structured log message through zap. The message is
// flattened through JSON so every field ectologger collected (error,
// context metadata, WithFields payloads) lands as a zap field.
func emit(base *zap.Logger, msg ectologger.EctoLogMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		base.Info(fmt.Sprintf("%+v", msg))
		return
	}

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		base.Info(string(raw))
		return
	}

	level := popString(fields, "level", "Level")
	message := popString(fields, "message", "Message", "msg")

	zapFields := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}
		zapFields = append(zapFields, zap.Any(strings.ToLower(key), value))
	}

	switch strings.ToLower(level) {
	case "debug":
		base.Debug(message, zapFields...)
	case "warn", "warning":
		base.Warn(message, zapFields...)
	case "error", "fatal", "panic":
		base.Error(message, zapFields...)
	default:
		base.Info(message, zapFields...)
	}
}

func popString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := fields[key].(string); ok {
			delete(fields, key)
			return value
		}
	}
	return ""
}
