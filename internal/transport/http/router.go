package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/httpx"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/validate"
)

// maxItemBody — ограничение тела POST /cart/items.
const maxItemBody = 64 << 10

// Handler — HTTP-граница корзины для UI.
type Handler struct {
	service ports.CartService
	log     ports.Logger
	timeout time.Duration
}

// NewHandler — timeout <= 0 означает без собственного таймаута (только контекст запроса).
func NewHandler(service ports.CartService, log ports.Logger, timeout time.Duration) *Handler {
	return &Handler{service: service, log: log, timeout: timeout}
}

// cartResponse — снимок корзины для UI.
type cartResponse struct {
	Version       uint64            `json:"version"`
	Products      []domain.LineItem `json:"products"`
	TotalQuantity uint64            `json:"total_quantity"`
}

// NewRouter — gin с recovery, request id, otel и логированием запросов.
// serviceName пустой — без otel-мидлвари.
func NewRouter(h *Handler, serviceName string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(httpx.RequestIDMiddleware())
	if serviceName != "" {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(httpx.RequestLogger(h.log))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/cart", h.getCart)
	r.DELETE("/cart", h.clearCart)
	r.POST("/cart/items", h.addItem)
	r.POST("/cart/items/:id/increment", h.incrementItem)
	r.POST("/cart/items/:id/decrement", h.decrementItem)

	return r
}

func (h *Handler) getCart(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	snap, err := h.service.Snapshot(ctx)
	h.respond(c, "Snapshot", snap, err)
}

func (h *Handler) clearCart(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	snap, err := h.service.Clear(ctx)
	h.respond(c, "Clear", snap, err)
}

func (h *Handler) addItem(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	item, err := decodeItem(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// id дальше адресуется сегментом пути /cart/items/:id
	if strings.Contains(item.ID, "/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id не должен содержать '/'"})
		return
	}

	snap, err := h.service.AddToCart(ctx, item)
	h.respond(c, "AddToCart", snap, err)
}

func (h *Handler) incrementItem(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	snap, err := h.service.Increment(ctx, c.Param("id"))
	h.respond(c, "Increment", snap, err)
}

func (h *Handler) decrementItem(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	snap, err := h.service.Decrement(ctx, c.Param("id"))
	h.respond(c, "Decrement", snap, err)
}

// respond — маппинг доменных ошибок на HTTP-статусы.
func (h *Handler) respond(c *gin.Context, op string, snap domain.Snapshot, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, cartResponse{
			Version:       snap.Version,
			Products:      snap.Items,
			TotalQuantity: snap.TotalQuantity(),
		})
	case errors.Is(err, validate.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotReady):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cart is not ready"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timeout"})
	default:
		h.log.Errorf(c.Request.Context(), "%s failed err=%v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// decodeItem — строгий разбор тела: неизвестные поля и хвост запрещены.
func decodeItem(body io.Reader) (domain.ItemDescriptor, error) {
	var item domain.ItemDescriptor
	raw, err := io.ReadAll(io.LimitReader(body, maxItemBody+1))
	if err != nil {
		return item, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxItemBody {
		return item, errors.New("body too large")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		return item, fmt.Errorf("invalid json: %w", err)
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return item, errors.New("invalid json: trailing data")
	}
	return item, nil
}
