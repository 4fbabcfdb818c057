// Package migrations — SQL-миграции схемы таблиц событий (goose), вшитые в бинарь.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
