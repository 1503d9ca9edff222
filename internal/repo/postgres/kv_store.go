package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

// Проверка, что KVStore удовлетворяет интерфейсу KVStore.
var _ ports.KVStore = (*KVStore)(nil)

// KVStore — хранилище ключ-значение на Postgres (таблица cart_kv, см. migrations/).
type KVStore struct {
	pool *pgxpool.Pool
}

// NewKVStore — конструктор KVStore.
func NewKVStore(pool *pgxpool.Pool) *KVStore { return &KVStore{pool: pool} }

// Load — значение по ключу; отсутствие строки не ошибка.
func (s *KVStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM cart_kv WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: select cart_kv: %w", domain.ErrStorageUnavailable, err)
	}
	return raw, true, nil
}

// Save — идемпотентный upsert по ключу.
func (s *KVStore) Save(ctx context.Context, key string, raw []byte) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO cart_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, raw); err != nil {
		return fmt.Errorf("%w: upsert cart_kv: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Delete — удаление ключа; отсутствие строки не ошибка.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: delete cart_kv: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}
