package httpx

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/ctxmeta"
)

// служебные маршруты не логируем
var quietPaths = map[string]struct{}{
	"/metrics": {},
	"/ping":    {},
}

// RequestLogger — middleware для логирования HTTP-запросов к корзине.
// 5xx пишутся как warning, остальное как info.
func RequestLogger(log ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if _, ok := quietPaths[path]; ok {
			return
		}
		if path == "" {
			path = c.Request.URL.Path
		}

		ctx := c.Request.Context()
		rid, _ := ctxmeta.RequestIDFromContext(ctx)
		tr, _ := ctxmeta.TraceIDFromContext(ctx)

		logf := log.Infof
		if c.Writer.Status() >= http.StatusInternalServerError {
			logf = log.Warnf
		}
		logf(ctx,
			"request id=%s trace=%s method=%s path=%s item=%s status=%d duration=%s size=%d",
			rid, tr,
			c.Request.Method,
			path,
			c.Param("id"),
			c.Writer.Status(),
			time.Since(start),
			c.Writer.Size(),
		)
	}
}
