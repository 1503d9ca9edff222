package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

// Проверка, что ItemValidator удовлетворяет интерфейсу ItemValidator.
var _ ports.ItemValidator = (*ItemValidator)(nil)

// ErrInvalidItem — базовая (sentinel error) ошибка валидации товара.
var ErrInvalidItem = errors.New("invalid cart item")

// ItemValidator — проверка описания товара перед добавлением в корзину.
type ItemValidator struct{}

// NewItemValidator — конструктор ItemValidator.
// Возвращает ErrInvalidItem (с обёрнутой причиной) при любой проблеме.
func NewItemValidator() *ItemValidator { return &ItemValidator{} }

// Validate — id обязателен, строки в UTF-8, цена конечная и неотрицательная.
// Содержимое title и image_url не проверяется: корзина хранит то, что дал каталог.
func (v *ItemValidator) Validate(_ context.Context, item domain.ItemDescriptor) error {
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("%w: id обязателен", ErrInvalidItem)
	}
	// JSON заменяет битые байты на U+FFFD: разные id склеились бы после записи
	for field, value := range map[string]string{"id": item.ID, "title": item.Title, "image_url": item.ImageURL} {
		if !utf8.ValidString(value) {
			return fmt.Errorf("%w: %s должен быть в UTF-8", ErrInvalidItem, field)
		}
	}
	if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
		return fmt.Errorf("%w: price должен быть числом", ErrInvalidItem)
	}
	if item.Price < 0 {
		return fmt.Errorf("%w: price должен быть неотрицательным", ErrInvalidItem)
	}
	return nil
}
