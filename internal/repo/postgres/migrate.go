package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/migrations"
)

// Migrate — накатывает вшитые миграции goose (таблица cart_kv) через пул.
// Уже применённые миграции пропускаются.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log ports.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		log.Infof(ctx, "migration applied version=%d source=%s duration=%s",
			r.Source.Version, r.Source.Path, r.Duration)
	}
	return nil
}
