// Пакет ctxmeta — нейтральный слой для метаданных, которые прокидываются через
// context.Context (request_id, имя таблицы загрузчика, trace_id).
// HTTP-слой, загрузчик и логгер зависят от этого пакета, но не друг от друга.
package ctxmeta

import "context"

type ctxKey string

const (
	// Ключи контекста (неэкспортируемый тип — чтобы избежать коллизий).
	KeyRequestID ctxKey = "request_id"
	KeyTable     ctxKey = "table"
)

// WithRequestID кладёт request_id в контекст (если пусто — ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, KeyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyRequestID)
}

// WithTable кладёт имя таблицы, которую обслуживает воркер загрузки.
func WithTable(ctx context.Context, table string) context.Context {
	return withString(ctx, KeyTable, table)
}

// TableFromContext достаёт имя таблицы из контекста.
func TableFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyTable)
}

func withString(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
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
