// Package middleware 提供 gin 中间件：请求 id、日志、指标、追踪、认证、限流、熔断与 ETag.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ctxPkg "github.com/yeisme/gradevault/pkg/context"
)

// HeaderRequestID 请求 id 头.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// RequestIDMiddleware 沿用客户端传入的 X-Request-ID，没有时生成一个.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Request = c.Request.WithContext(ctxPkg.WithRequestID(c.Request.Context(), id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID 返回当前请求 id.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
