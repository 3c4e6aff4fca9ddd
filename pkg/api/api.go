// Package api 组装 /api/v1 路由组.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/internal/router"
	"github.com/yeisme/gradevault/pkg/middleware"
)

// Prefix API 路径前缀.
const Prefix = "/api/v1"

// RegisterGroup 在 e 上注册业务、健康检查与调度器路由，JSON 响应经过 gzip.
func RegisterGroup(e *gin.Engine, handlers router.ObjHandlers, requireAdmin gin.HandlerFunc) *gin.RouterGroup {
	v1 := e.Group(Prefix, middleware.GzipMiddleware())

	router.Register(v1, handlers, requireAdmin)
	router.RegisterHealthCheckRoute(v1)
	router.RegisterSchedulerRoutes(v1, requireAdmin)

	return v1
}
