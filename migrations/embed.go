// Пакет migrations — SQL-миграции goose для Postgres-хранилища корзины.
package migrations

import "embed"

// FS — все *.sql миграции, вшитые в бинарник.
//
//go:embed *.sql
var FS embed.FS
