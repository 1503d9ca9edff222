// Пакет codec — формат хранения состояния корзины в хранилище ключ-значение:
// JSON-массив позиций с полями id, title, image_url, price, quantity.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
)

// Encode — сериализует позиции; пустая корзина кодируется как "[]".
func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return raw, nil
}

// Decode — строгий разбор сохранённого состояния.
// Любая ошибка (синтаксис, лишние поля, хвост после массива, нарушение инвариантов)
// оборачивает domain.ErrCorruptPersistedState. "null" трактуется как пустая корзина.
func Decode(raw []byte) ([]domain.LineItem, error) {
	var items []domain.LineItem
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", domain.ErrCorruptPersistedState, err)
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", domain.ErrCorruptPersistedState)
	}
	if err := domain.CheckItems(items); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptPersistedState, err)
	}
	return domain.CloneItems(items), nil
}
