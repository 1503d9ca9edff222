package domain

import (
	"fmt"
	"math"
)

// AddItem — добавляет товар: существующая позиция получает +1, новая дописывается в конец.
// Метаданные (title, image_url, price) берутся из первого добавления.
func AddItem(items []LineItem, d ItemDescriptor) []LineItem {
	out := CloneItems(items)
	if i := indexOf(out, d.ID); i >= 0 {
		if out[i].Quantity < math.MaxUint32 {
			out[i].Quantity++
		}
		return out
	}
	return append(out, NewLineItem(d))
}

// IncrementItem — +1 к существующей позиции. changed=false, если позиции нет
// или количество уже на пределе uint32.
func IncrementItem(items []LineItem, id string) ([]LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 || items[i].Quantity == math.MaxUint32 {
		return items, false
	}
	out := CloneItems(items)
	out[i].Quantity++
	return out, true
}

// DecrementItem — -1 к позиции; при количестве 1 позиция удаляется целиком,
// порядок остальных сохраняется.
func DecrementItem(items []LineItem, id string) ([]LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	if items[i].Quantity > 1 {
		out := CloneItems(items)
		out[i].Quantity--
		return out, true
	}
	out := make([]LineItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)
	return out, true
}

// CheckItems — проверка инвариантов состояния корзины
// (непустые уникальные id, price >= 0, quantity >= 1).
func CheckItems(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			return fmt.Errorf("items[%d]: empty id", i)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("items[%d]: duplicate id %q", i, item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			return fmt.Errorf("items[%d]: invalid price %v", i, item.Price)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("items[%d]: quantity must be >= 1", i)
		}
	}
	return nil
}

func indexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
