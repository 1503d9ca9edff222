package rest_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/gomarketplace_cart/internal/repo/memory"
	rest "github.com/Gunvolt24/gomarketplace_cart/internal/transport/http"
	"github.com/Gunvolt24/gomarketplace_cart/internal/usecase"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/validate"
)

// Сквозной сценарий поверх настоящего CartStore: 503 до загрузки, затем add/add/decrement.
func TestHTTP_CartStore_Flow(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := usecase.NewCartStore(memory.NewKVStore(), validate.NewItemValidator(), noopLogger{}, usecase.CartStoreConfig{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = store.Close(ctx)
	})

	r := rest.NewRouter(rest.NewHandler(store, noopLogger{}, time.Second), "")

	if w := serve(r, http.MethodGet, "/cart", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 before Initialize, got %d", w.Code)
	}

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	body := `{"id":"p1","title":"Widget","image_url":"u","price":10}`
	serve(r, http.MethodPost, "/cart/items", body)
	w := serve(r, http.MethodPost, "/cart/items", body)
	if got := decodeCart(t, w); got.TotalQuantity != 2 {
		t.Fatalf("want quantity 2 after double add, got %+v", got)
	}

	w = serve(r, http.MethodPost, "/cart/items/p1/decrement", "")
	if got := decodeCart(t, w); len(got.Products) != 1 || got.Products[0].Quantity != 1 {
		t.Fatalf("want quantity 1 after decrement, got %+v", got)
	}

	if w := serve(r, http.MethodPost, "/cart/items", `{"id":"p2","price":-1}`); w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for negative price, got %d", w.Code)
	}

	w = serve(r, http.MethodPost, "/cart/items/p1/decrement", "")
	if got := decodeCart(t, w); len(got.Products) != 0 {
		t.Fatalf("want empty cart after removal, got %+v", got)
	}
}

// Товар с id, который нельзя адресовать в пути, не добавляется;
// добавленный товар доступен по /cart/items/:id.
func TestHTTP_CartStore_IDsAddressableByPath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := usecase.NewCartStore(memory.NewKVStore(), validate.NewItemValidator(), noopLogger{}, usecase.CartStoreConfig{})
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	r := rest.NewRouter(rest.NewHandler(store, noopLogger{}, time.Second), "")

	if w := serve(r, http.MethodPost, "/cart/items", `{"id":"a/b","price":1}`); w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for id with slash, got %d", w.Code)
	}
	if snap, _ := store.Snapshot(context.Background()); snap.Len() != 0 {
		t.Fatalf("rejected item must not reach the cart: %+v", snap)
	}

	serve(r, http.MethodPost, "/cart/items", `{"id":"sku-7","price":1}`)
	w := serve(r, http.MethodPost, "/cart/items/sku-7/increment", "")
	if got := decodeCart(t, w); got.TotalQuantity != 2 {
		t.Fatalf("want quantity 2 after increment by path, got %+v", got)
	}
}
