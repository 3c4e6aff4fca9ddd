package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/log"
)

const emailKey = "auth_email"

// AdminChecker 判断邮箱是否为管理员，由 service.AdminService 实现.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// AuthMiddleware 读取 oauth2-proxy 注入的邮箱头.
//   - X-Auth-Request-Email 优先，其次 X-Forwarded-Email
//   - auth.skip_paths 中的前缀不校验
//   - dev_allow_query 为 true 时可用 ?user= 代替请求头
//
// 认证关闭时仍会记录邮箱，供管理员判定使用.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := requestEmail(c, conf.DevAllowQuery)
		if email != "" {
			c.Set(emailKey, email)
		}

		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}

func requestEmail(c *gin.Context, allowQuery bool) string {
	email := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email"))
	if email == "" {
		email = strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
	}

	if email == "" && allowQuery {
		email = strings.TrimSpace(c.Query("user"))
	}

	return email
}

// GetEmail 返回 AuthMiddleware 识别出的邮箱.
func GetEmail(c *gin.Context) string {
	return c.GetString(emailKey)
}

// RequireAdmin 要求当前邮箱是管理员，否则返回 403.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := GetEmail(c)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ok, err := checker.IsAdmin(c.Request.Context(), email)
		if err != nil {
			log.Logger().Error().Err(err).Str("email", email).Msg("admin check failed")
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "admin check failed"})

			return
		}

		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: admin only"})
			return
		}

		c.Next()
	}
}

func isSkippedPath(path string, skips []string) bool {
	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
