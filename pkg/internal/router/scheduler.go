package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册调度器路由，手动触发需要管理员.
func RegisterSchedulerRoutes(g *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	if requireAdmin == nil {
		requireAdmin = func(c *gin.Context) { c.Next() }
	}

	g.GET("/scheduler/jobs", handle.SchedulerJobs)
	g.GET("/scheduler/queue/waiting", handle.SchedulerQueueWaiting)
	g.POST("/scheduler/jobs/:name/run", requireAdmin, handle.SchedulerRunJob)
}
