package logger

import (
	"context"
	"os"
	"strconv"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/contextkeys"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements the domain.Logger interface using Zap.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a new ZapAdapter configured from the application config.
// Info and below go to stdout, errors and above to stderr, both as JSON.
func NewZapAdapter(cfgProvider config.Provider, serviceName, instanceID string) (domain.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfgProvider.Get().Log.Level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := newSplitCore(zapLevel, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr))
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	zapLogger = zapLogger.With(zap.String("service", serviceName), zap.String("instance_id", instanceID))

	return &ZapAdapter{logger: zapLogger}, nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(l *zap.Logger) domain.Logger {
	return &ZapAdapter{logger: l}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() domain.Logger {
	return &ZapAdapter{logger: zap.NewNop()}
}

func newSplitCore(level zapcore.Level, out, errOut zapcore.WriteSyncer) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	infoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl < zapcore.ErrorLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl >= zapcore.ErrorLevel
	})

	return zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), out, infoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), errOut, errorLevel),
	)
}

var contextFieldKeys = []interface{ String() string }{
	contextkeys.RequestIDKey,
	contextkeys.UserIDKey,
	contextkeys.AuthModeKey,
	contextkeys.EventOriginKey,
}

func (za *ZapAdapter) fields(ctx context.Context, args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+len(contextFieldKeys))

	if ctx != nil {
		for _, key := range contextFieldKeys {
			if v, ok := ctx.Value(key).(string); ok && v != "" {
				fields = append(fields, zap.String(key.String(), v))
			}
		}
	}

	return append(fields, pairsToFields(args)...)
}

// pairsToFields turns a flat key/value list into zap fields. Malformed pairs are kept
// under positional keys rather than dropped.
func pairsToFields(args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields = append(fields, zap.Any("orphan_field_"+strconv.Itoa(i), args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			fields = append(fields, zap.Any("invalid_key_"+strconv.Itoa(i), args[i]))
			key = "invalid_value_" + strconv.Itoa(i+1)
		}
		if err, isErr := args[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

func (za *ZapAdapter) Debug(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	za.logger.Debug(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Info(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.InfoLevel) {
		return
	}
	za.logger.Info(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.WarnLevel) {
		return
	}
	za.logger.Warn(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Error(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.ErrorLevel) {
		return
	}
	za.logger.Error(msg, za.fields(ctx, args)...)
}

func (za *ZapAdapter) Fatal(ctx context.Context, msg string, args ...any) {
	za.logger.Fatal(msg, za.fields(ctx, args)...) // Zap's Fatal logs and then calls os.Exit(1)
}

func (za *ZapAdapter) With(args ...any) domain.Logger {
	return &ZapAdapter{logger: za.logger.With(pairsToFields(args)...)}
}
