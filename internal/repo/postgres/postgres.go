package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewProbePool — маленький пул для проверки готовности БД (/readyz).
// Загрузчик его не использует: каждый цикл COPY открывает своё соединение.
// Пул ленивый: недоступная при старте БД не мешает запуску сервиса.
func NewProbePool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	return pgxpool.NewWithConfig(ctx, cfg)
}

// Ping — проверка готовности с ограничением по времени.
func Ping(pool *pgxpool.Pool, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}
