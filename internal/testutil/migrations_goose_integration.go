//go:build integration

package testutil

import (
	"context"
	"fmt"
	"time"

	pgrepo "github.com/Gunvolt24/gomarketplace_cart/internal/repo/postgres"
)

type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}

// ApplyMigrationsGoose — накатывает те же миграции, что и сервис при старте,
// на базу из контейнера.
func ApplyMigrationsGoose(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgrepo.NewPool(ctx, dsn, 2)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	defer pool.Close()

	return pgrepo.Migrate(ctx, pool, nopLogger{})
}
