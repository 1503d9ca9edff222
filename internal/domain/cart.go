package domain

// ItemDescriptor — описание товара, которое приходит из каталога при добавлении в корзину.
// Количество не передаётся: его ведёт только CartStore.
type ItemDescriptor struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
}

// LineItem — позиция корзины. Инвариант: Quantity >= 1.
type LineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity uint32  `json:"quantity"`
}

// NewLineItem — позиция из описания товара с количеством 1.
func NewLineItem(d ItemDescriptor) LineItem {
	return LineItem{
		ID:       d.ID,
		Title:    d.Title,
		ImageURL: d.ImageURL,
		Price:    d.Price,
		Quantity: 1,
	}
}

// Snapshot — неизменяемый срез состояния корзины для читателей (UI, подписчики).
// Items всегда собственная копия: изменения снаружи не влияют на CartStore.
type Snapshot struct {
	Version uint64     `json:"version"`
	Items   []LineItem `json:"products"`
}

// NewSnapshot — копирует позиции и фиксирует версию.
func NewSnapshot(version uint64, items []LineItem) Snapshot {
	return Snapshot{Version: version, Items: CloneItems(items)}
}

// Len — количество позиций.
func (s Snapshot) Len() int { return len(s.Items) }

// Find — позиция по id.
func (s Snapshot) Find(id string) (LineItem, bool) {
	if i := indexOf(s.Items, id); i >= 0 {
		return s.Items[i], true
	}
	return LineItem{}, false
}

// TotalQuantity — суммарное количество единиц товара.
func (s Snapshot) TotalQuantity() uint64 {
	var total uint64
	for i := range s.Items {
		total += uint64(s.Items[i].Quantity)
	}
	return total
}

// CloneItems — копия списка позиций; nil и пустой список дают пустой не-nil срез.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
