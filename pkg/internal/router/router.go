// Package router 把处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/internal/handle"
	"github.com/yeisme/gradevault/pkg/middleware"
)

// ObjHandlers 由应用层注入的文件与管理员处理器，实现见 handle.Handlers.
type ObjHandlers interface {
	Grades() gin.HandlerFunc
	List() gin.HandlerFunc
	Upload() gin.HandlerFunc
	Meta() gin.HandlerFunc
	Download() gin.HandlerFunc
	Content() gin.HandlerFunc
	Verify() gin.HandlerFunc
	Delete() gin.HandlerFunc
	AdminCheck() gin.HandlerFunc
}

// Register 绑定 /api/v1 下的业务路由，handlers 为 nil 时使用返回 501 的占位实现.
// requireAdmin 保护上传与删除.
//
//	GET    /grades
//	GET    /files/:grade
//	POST   /files/:grade              (admin)
//	GET    /files/:grade/:id
//	GET    /files/:grade/:id/download
//	GET    /files/:grade/:id/content
//	GET    /files/:grade/:id/verify
//	DELETE /files/:grade/:id          (admin)
//	GET    /admins/check
func Register(group *gin.RouterGroup, handlers ObjHandlers, requireAdmin gin.HandlerFunc) ObjHandlers {
	if handlers == nil {
		handlers = handle.DefaultHandlers{}
	}

	if requireAdmin == nil {
		requireAdmin = func(c *gin.Context) { c.Next() }
	}

	etag := middleware.ETagMiddleware()

	group.GET("/grades", etag, handlers.Grades())
	group.GET("/admins/check", handlers.AdminCheck())

	files := group.Group("/files/:grade")
	{
		files.GET("", etag, handlers.List())
		files.POST("", requireAdmin, handlers.Upload())

		files.GET("/:id", etag, handlers.Meta())
		files.GET("/:id/download", handlers.Download())
		files.GET("/:id/content", handlers.Content())
		files.GET("/:id/verify", handlers.Verify())
		files.DELETE("/:id", requireAdmin, handlers.Delete())
	}

	return handlers
}
