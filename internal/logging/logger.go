package logging

import (
	"context"

	"go.uber.org/zap"
)

type Logger struct {
	*zap.Logger
}

func New(level, format string) (*Logger, error) {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}
	lg, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{lg}, nil
}

type ctxLoggerKey struct{}

// IntoContext 把带公共字段的 logger 挂到 ctx
func IntoContext(ctx context.Context, lg *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, lg)
}

// FromContext 取出请求级 logger；取不到时返回 no-op，调用方不必判空
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if lg, ok := ctx.Value(ctxLoggerKey{}).(*zap.Logger); ok && lg != nil {
			return lg
		}
	}
	return zap.NewNop()
}

// WithContext 取出 trace_id / user_id / tenant_id 作为公共字段
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.Logger
	}
	fields := make([]zap.Field, 0, 3)
	if v := ctx.Value("trace_id"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			fields = append(fields, zap.String("trace_id", s))
		}
	}
	if v := ctx.Value("user_id"); v != nil {
		if id, ok := v.(int64); ok && id > 0 {
			fields = append(fields, zap.Int64("user_id", id))
		}
	}
	if v := ctx.Value("tenant_id"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			fields = append(fields, zap.String("tenant_id", s))
		}
	}
	if len(fields) == 0 {
		return l.Logger
	}
	return l.Logger.With(fields...)
}
