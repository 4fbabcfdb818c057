package postgres

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// Проверка, что Connector удовлетворяет порту загрузчика.
var _ ports.Connector = (*Connector)(nil)

const defaultPort = 5432

// DSN — строка подключения из параметров БД.
func DSN(p ports.DBParams) string {
	port := p.Port
	if port <= 0 {
		port = defaultPort
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(port)),
		Path:   "/" + p.Name,
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
	}
	return u.String()
}

// Connector — новое соединение на каждый цикл загрузки: пул не держим,
// между циклами к БД ничего не подключено.
type Connector struct {
	connectTimeout time.Duration
}

// NewConnector — конструктор. connectTimeout <= 0 — по умолчанию драйвера.
func NewConnector(connectTimeout time.Duration) *Connector {
	return &Connector{connectTimeout: connectTimeout}
}

// Connect — соединение и открытая транзакция.
func (c *Connector) Connect(ctx context.Context, p ports.DBParams) (ports.CopySession, error) {
	cfg, err := pgx.ParseConfig(DSN(p))
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if c.connectTimeout > 0 {
		cfg.ConnectTimeout = c.connectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s/%s: %w", p.Host, p.Name, err)
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &copySession{conn: conn, tx: tx}, nil
}

type copySession struct {
	conn *pgx.Conn
	tx   pgx.Tx
}

// CopySQL — COPY в текстовом формате с заданным разделителем полей.
func CopySQL(table string, sep rune) string {
	delim := strings.ReplaceAll(string(sep), "'", "''")
	return fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT text, DELIMITER '%s')", pgx.Identifier{table}.Sanitize(), delim)
}

// CopyFrom — поток строк в таблицу; возвращает число загруженных строк.
func (s *copySession) CopyFrom(ctx context.Context, r io.Reader, table string, sep rune) (int64, error) {
	tag, err := s.tx.Conn().PgConn().CopyFrom(ctx, r, CopySQL(table, sep))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *copySession) Commit(ctx context.Context) error   { return s.tx.Commit(ctx) }
func (s *copySession) Rollback(ctx context.Context) error { return s.tx.Rollback(ctx) }
func (s *copySession) Close(ctx context.Context) error    { return s.conn.Close(ctx) }
