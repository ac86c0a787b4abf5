package middleware

import (
	"bytes"
	"net/http"
	"time"

	"storefront-service/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CacheHeader reports HIT or MISS on cacheable responses.
const CacheHeader = "X-Cache"

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache serves successful JSON GET responses from the responses:
// namespace, keyed by request URI. Catalog writes clear the namespace.
func ResponseCache(c cache.Cache, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}

		key := cache.ResponseKey(ctx.Request.URL.RequestURI())
		if body, ok, err := c.Get(ctx.Request.Context(), key); err == nil && ok {
			ctx.Header(CacheHeader, "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
			ctx.Abort()
			return
		} else if err != nil {
			log.Debug("response cache read failed", zap.String("key", key), zap.Error(err))
		}

		rec := &bodyRecorder{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = rec
		ctx.Header(CacheHeader, "MISS")
		ctx.Next()

		if rec.Status() != http.StatusOK || rec.body.Len() == 0 {
			return
		}
		if err := c.Set(ctx.Request.Context(), key, rec.body.Bytes(), ttl); err != nil {
			log.Debug("response cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}
