package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/context"
	"github.com/yeisme/gradevault/pkg/internal/storage"
)

// StorageMiddleware 把存储管理器放入请求 context，handler 通过 pkg/context 取用.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithStorageManager(c.Request.Context(), manager))
		c.Next()
	}
}
