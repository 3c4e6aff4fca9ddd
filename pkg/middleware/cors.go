package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware 允许浏览器跨域读取下载相关的响应头.
func CORSMiddleware() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = append(config.AllowHeaders,
		"Authorization", "If-None-Match", HeaderRequestID, "X-Auth-Request-Email")
	config.ExposeHeaders = []string{"Content-Disposition", "ETag", HeaderRequestID}
	config.MaxAge = 12 * time.Hour

	return cors.New(config)
}
