package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/internal/types"
)

// AdminCheck GET /admins/check?email=.
func (h *Handlers) AdminCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.AdminCheckRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, "invalid email", err)
			return
		}

		ok, err := h.admins.IsAdmin(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, "admin check failed", err)
			return
		}

		c.JSON(http.StatusOK, types.AdminCheckResponse{Email: req.Email, Admin: ok})
	}
}
