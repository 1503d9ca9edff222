package logger

import (
	"context"

	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/ctxmeta"
	"go.uber.org/zap"
)

var _ ports.Logger = (*ZapLogger)(nil)

// ZapLogger — реализация ports.Logger поверх zap.SugaredLogger.
// Метаданные из контекста (request_id, source, trace/span) добавляются полями.
type ZapLogger struct {
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	isProd bool
}

// NewZapLogger — production (JSON) или development (консоль) конфигурация.
// Возвращает функцию Sync для вызова при остановке.
func NewZapLogger(isProd bool) (*ZapLogger, func() error, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if isProd {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, nil, err
	}

	return wrap(logger, isProd), func() error { return logger.Sync() }, nil
}

// NewFromZap — обёртка над готовым *zap.Logger (например, zaptest/observer в тестах).
func NewFromZap(logger *zap.Logger) *ZapLogger { return wrap(logger, false) }

func wrap(logger *zap.Logger, isProd bool) *ZapLogger {
	return &ZapLogger{
		base:   logger,
		sugar:  logger.Sugar(),
		isProd: isProd,
	}
}

func (z *ZapLogger) Infof(ctx context.Context, format string, args ...any) {
	z.withContext(ctx).Infof(format, args...)
}
func (z *ZapLogger) Warnf(ctx context.Context, format string, args ...any) {
	z.withContext(ctx).Warnf(format, args...)
}
func (z *ZapLogger) Errorf(ctx context.Context, format string, args ...any) {
	z.withContext(ctx).Errorf(format, args...)
}

func (z *ZapLogger) Base() *zap.Logger           { return z.base }
func (z *ZapLogger) Sugared() *zap.SugaredLogger { return z.sugar }

func (z *ZapLogger) withContext(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return z.sugar
	}
	var fields []any
	if rid, ok := ctxmeta.RequestIDFromContext(ctx); ok {
		fields = append(fields, "request_id", rid)
	}
	if src, ok := ctxmeta.SourceFromContext(ctx); ok {
		fields = append(fields, "source", src)
	}
	if tr, ok := ctxmeta.TraceIDFromContext(ctx); ok {
		fields = append(fields, "trace_id", tr)
	}
	if len(fields) == 0 {
		return z.sugar
	}
	return z.sugar.With(fields...)
}
