// Пакет ctxmeta — метаданные вызова, которые прокидываются через context.Context:
// request_id (HTTP) и источник мутации корзины (http, kafka, ...).
// HTTP-слой, консьюмер и логгер зависят от него, но не друг от друга.
package ctxmeta

import "context"

type ctxKey string

const (
	KeyRequestID ctxKey = "request_id"
	KeySource    ctxKey = "source"
)

// Известные источники мутаций.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
)

// WithRequestID кладёт request_id в контекст (если пусто — ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, KeyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyRequestID)
}

// WithSource помечает контекст источником команды.
func WithSource(ctx context.Context, source string) context.Context {
	return withString(ctx, KeySource, source)
}

// SourceFromContext — источник команды; пусто, если не задан.
func SourceFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeySource)
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
