package ports

import (
	"context"
	"io"
)

// DBParams — параметры подключения к БД, общие для всех воркеров (только чтение).
type DBParams struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// IsZero — параметры не заданы.
func (p DBParams) IsZero() bool { return p.Host == "" && p.Name == "" && p.User == "" }

// Connector — открывает новое независимое соединение с начатой транзакцией.
type Connector interface {
	Connect(ctx context.Context, params DBParams) (CopySession, error)
}

// CopySession — одна транзакция COPY поверх отдельного соединения.
type CopySession interface {
	// CopyFrom — потоковая загрузка строк из r в таблицу; возвращает число загруженных строк.
	CopyFrom(ctx context.Context, r io.Reader, table string, sep rune) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}
