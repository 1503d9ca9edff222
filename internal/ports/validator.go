package ports

import (
	"context"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
)

// ItemValidator — проверка описания товара перед добавлением в корзину.
type ItemValidator interface {
	Validate(ctx context.Context, item domain.ItemDescriptor) error
}
