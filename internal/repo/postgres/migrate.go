package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver name = "pgx"
	"github.com/pressly/goose/v3"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/migrations"
)

// Migrate — применяет вшитые миграции (создание таблиц событий).
func Migrate(ctx context.Context, dsn string, log ports.Logger) error {
	goose.SetLogger(gooseLogger{ctx: ctx, log: log})
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// gooseLogger — вывод goose в общий логгер.
type gooseLogger struct {
	ctx context.Context
	log ports.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infof(l.ctx, "goose: "+strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Errorf(l.ctx, "goose: "+strings.TrimSpace(format), v...)
}
