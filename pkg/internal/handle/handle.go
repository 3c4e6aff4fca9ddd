// Package handle 实现 HTTP 处理器，文件与管理员接口由 Handlers 持有的服务驱动.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/gradevault/pkg/context"
	"github.com/yeisme/gradevault/pkg/internal/service"
	"github.com/yeisme/gradevault/pkg/internal/transfer"
	"github.com/yeisme/gradevault/pkg/log"
	"github.com/yeisme/gradevault/pkg/rule"
)

// Handlers 文件、年级与管理员接口.
type Handlers struct {
	files        *service.FileService
	admins       *service.AdminService
	maxMultipart int64
}

// New 创建处理器，maxMultipartMB 为 multipart 表单在内存中的上限.
func New(files *service.FileService, admins *service.AdminService, maxMultipartMB int64) *Handlers {
	return &Handlers{files: files, admins: admins, maxMultipart: maxMultipartMB << 20}
}

// DefaultHandlers 未注入服务时使用，所有接口返回 501.
type DefaultHandlers struct{}

func (DefaultHandlers) Grades() gin.HandlerFunc     { return DefaultHandler }
func (DefaultHandlers) List() gin.HandlerFunc       { return DefaultHandler }
func (DefaultHandlers) Upload() gin.HandlerFunc     { return DefaultHandler }
func (DefaultHandlers) Meta() gin.HandlerFunc       { return DefaultHandler }
func (DefaultHandlers) Download() gin.HandlerFunc   { return DefaultHandler }
func (DefaultHandlers) Content() gin.HandlerFunc    { return DefaultHandler }
func (DefaultHandlers) Verify() gin.HandlerFunc     { return DefaultHandler }
func (DefaultHandlers) Delete() gin.HandlerFunc     { return DefaultHandler }
func (DefaultHandlers) AdminCheck() gin.HandlerFunc { return DefaultHandler }

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// StatusOf 把领域错误映射为 HTTP 状态码.
func StatusOf(err error) int {
	var verrs validator.ValidationErrors

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, transfer.ErrValidation), errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transfer.ErrReassembly):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transfer.ErrPartialUpload), errors.Is(err, transfer.ErrStoreWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError 记录并返回错误，5xx 记为 error，其余记为 warn.
func respondError(c *gin.Context, msg string, err error) {
	status := StatusOf(err)
	l := logger(c)

	var event *zerolog.Event
	if status >= http.StatusInternalServerError {
		event = l.Error()
	} else {
		event = l.Warn()
	}

	event.Err(err).Int("status", status).Msg(msg)

	_ = c.Error(err)

	if fields := rule.Errors(err); fields != nil {
		c.JSON(status, gin.H{"error": "validation failed", "fields": fields})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func logger(c *gin.Context) zerolog.Logger {
	return ctxPkg.WithTraceContext(c.Request.Context(), log.Component("http"))
}
