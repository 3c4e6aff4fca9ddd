package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/gradevault/pkg/context"
	"github.com/yeisme/gradevault/pkg/internal/storage"
)

const healthTimeout = 2 * time.Second

func healthCheck(component string, check func(m *storage.Manager, ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		mgr := ctxPkg.GetManager(c.Request.Context())
		if mgr == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": "storage manager not initialized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		err := check(mgr, ctx)

		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"component": component, "status": "ok"})
		case errors.Is(err, storage.ErrNotConfigured):
			c.JSON(http.StatusOK, gin.H{"component": component, "status": "disabled"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": err.Error()})
		}
	}
}

// HealthStore 路径存储健康检查.
var HealthStore = healthCheck("store", (*storage.Manager).CheckStore)

// HealthDB 数据库健康检查，仅 sql 后端.
var HealthDB = healthCheck("db", (*storage.Manager).CheckDB)

// HealthS3 对象存储健康检查，仅 s3 后端.
var HealthS3 = healthCheck("s3", (*storage.Manager).CheckS3)

// HealthMQ 消息队列健康检查.
var HealthMQ = healthCheck("mq", (*storage.Manager).CheckMQ)
