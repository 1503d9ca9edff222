//go:build integration

package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
)

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func UniqSuffix() string { return randHex(6) }

// MakeItem — мини-генератор валидного описания товара.
func MakeItem(opts ...func(*domain.ItemDescriptor)) domain.ItemDescriptor {
	id := "prod-" + UniqSuffix()
	item := domain.ItemDescriptor{
		ID:       id,
		Title:    "Product " + id,
		ImageURL: "https://cdn.example.com/" + id + ".png",
		Price:    199.9,
	}
	for _, opt := range opts {
		opt(&item)
	}
	return item
}

// WithPrice — задать цену.
func WithPrice(p float64) func(*domain.ItemDescriptor) {
	return func(i *domain.ItemDescriptor) { i.Price = p }
}

// AddCommand — сообщение {"op":"add","item":{...}} для топика команд.
func AddCommand(item domain.ItemDescriptor) []byte {
	raw, _ := json.Marshal(map[string]any{"op": "add", "item": item})
	return raw
}

// IDCommand — сообщение increment/decrement по id.
func IDCommand(op, id string) []byte {
	raw, _ := json.Marshal(map[string]string{"op": op, "id": id})
	return raw
}
