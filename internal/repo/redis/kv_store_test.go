package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
)

// setupTestRedis — miniredis + KVStore поверх него.
func setupTestRedis(t *testing.T, ttl time.Duration) (*KVStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewKVStore(client, "cart:", ttl), mr
}

func TestLoad_Missing(t *testing.T) {
	kv, _ := setupTestRedis(t, 0)

	raw, found, err := kv.Load(context.Background(), "@GoMarketplace:products")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, raw)
}

func TestSaveLoad_WithPrefix(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, kv.Save(ctx, "@GoMarketplace:products", []byte(`[]`)))

	// ключ лежит с префиксом
	got, err := mr.Get("cart:@GoMarketplace:products")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)

	raw, found, err := kv.Load(ctx, "@GoMarketplace:products")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[]`, string(raw))
}

func TestSave_TTL(t *testing.T) {
	kv, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, kv.Save(ctx, "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("cart:k"))

	mr.FastForward(2 * time.Hour)
	_, found, err := kv.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "key must expire after ttl")
}

func TestDelete(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, kv.Delete(ctx, "missing"))
	require.NoError(t, kv.Save(ctx, "k", []byte("v")))
	require.NoError(t, kv.Delete(ctx, "k"))
	assert.False(t, mr.Exists("cart:k"))
}

func TestServerDown_Unavailable(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	ctx := context.Background()
	mr.Close()

	_, _, err := kv.Load(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, kv.Save(ctx, "k", []byte("v")), domain.ErrStorageUnavailable)
	assert.ErrorIs(t, kv.Delete(ctx, "k"), domain.ErrStorageUnavailable)
}

func TestServerError_Unavailable(t *testing.T) {
	kv, mr := setupTestRedis(t, 0)
	mr.SetError("LOADING Redis is loading the dataset in memory")
	defer mr.SetError("")

	_, _, err := kv.Load(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestNewClient_PingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewClient(ctx, addr, "", 0)
	assert.Error(t, err)
}
