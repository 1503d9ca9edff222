package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

var _ ports.KVStore = (*KVStore)(nil)

// KVStore — хранилище корзины в Redis: одна строка на ключ.
// ttl > 0 — ключ истекает, если корзину долго не трогали.
type KVStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewKVStore(client redis.UniversalClient, prefix string, ttl time.Duration) *KVStore {
	return &KVStore{client: client, prefix: prefix, ttl: ttl}
}

// NewClient — клиент по адресу с проверкой соединения.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *KVStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis get failed: %w", domain.ErrStorageUnavailable, err)
	}
	return data, true, nil
}

func (s *KVStore) Save(ctx context.Context, key string, raw []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set failed: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis delete failed: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *KVStore) redisKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + key
}
