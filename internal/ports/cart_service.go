package ports

import (
	"context"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
)

// CartService — операции корзины, доступные транспортному слою (HTTP, Kafka).
// Каждая мутация возвращает снимок состояния сразу после применения в памяти.
type CartService interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	AddToCart(ctx context.Context, item domain.ItemDescriptor) (domain.Snapshot, error)
	Increment(ctx context.Context, id string) (domain.Snapshot, error)
	Decrement(ctx context.Context, id string) (domain.Snapshot, error)
	Clear(ctx context.Context) (domain.Snapshot, error)
}
