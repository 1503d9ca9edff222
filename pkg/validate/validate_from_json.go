package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gunvolt24/gomarketplace_cart/internal/codec"
	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

// ValidateCartDump — проверка сохранённого состояния корзины (значение ключа в хранилище).
// Ошибка оборачивает domain.ErrCorruptPersistedState.
func ValidateCartDump(raw []byte) ([]domain.LineItem, error) {
	return codec.Decode(raw)
}

// ValidateItemFromJSON — строгий разбор и валидация описания товара.
func ValidateItemFromJSON(ctx context.Context, validator ports.ItemValidator, raw []byte) (*domain.ItemDescriptor, error) {
	var item domain.ItemDescriptor
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrInvalidItem, err)
	}
	// гарантируем отсутствие данных после объекта
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("%w: invalid json: trailing data", ErrInvalidItem)
	}
	if err := validator.Validate(ctx, item); err != nil {
		return nil, err
	}
	return &item, nil
}
