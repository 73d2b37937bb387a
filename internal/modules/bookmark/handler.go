package bookmark

import (
	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookmarks", h.list)
}

// list GET /bookmarks
func (h *Handler) list(c *gin.Context) {
	ids, err := h.svc.IDs(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, ids)
}
