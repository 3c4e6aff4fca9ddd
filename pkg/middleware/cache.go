package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
)

// etagWriter 缓冲响应体，由 ETagMiddleware 决定写出还是返回 304.
type etagWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *etagWriter) WriteHeader(code int) { w.status = code }

func (w *etagWriter) WriteHeaderNow() {}

func (w *etagWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *etagWriter) WriteString(s string) (int, error) { return w.buf.WriteString(s) }

func (w *etagWriter) Status() int { return w.status }

func (w *etagWriter) Size() int { return w.buf.Len() }

func (w *etagWriter) Written() bool { return w.buf.Len() > 0 }

// ETagMiddleware 为 GET 的 200 响应计算 xxhash 弱 ETag，If-None-Match 命中时返回 304.
// 只挂在体积较小的 JSON 路由上.
func ETagMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		orig := c.Writer
		w := &etagWriter{ResponseWriter: orig, status: http.StatusOK}
		c.Writer = w

		c.Next()

		c.Writer = orig

		if w.status != http.StatusOK {
			orig.WriteHeader(w.status)
			_, _ = orig.Write(w.buf.Bytes())

			return
		}

		etag := `W/"` + strconv.FormatUint(xxhash.Sum64(w.buf.Bytes()), 16) + `"`
		orig.Header().Set("ETag", etag)

		if matchETag(c.GetHeader("If-None-Match"), etag) {
			orig.WriteHeader(http.StatusNotModified)
			return
		}

		orig.WriteHeader(http.StatusOK)
		_, _ = orig.Write(w.buf.Bytes())
	}
}

func matchETag(header, etag string) bool {
	for _, v := range strings.Split(header, ",") {
		v = strings.TrimSpace(v)
		if v == "*" || v == etag || "W/"+v == etag {
			return true
		}
	}

	return false
}
