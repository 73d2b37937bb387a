package customfilter

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/response"
)

// Handler exposes the custom filter editor endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/custom-filters")
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.PUT("", h.save)
	g.DELETE("/:name", h.delete)
}

type filterResponse struct {
	models.CustomFilter
	Summary string `json:"summary"`
}

func toResponse(f models.CustomFilter) filterResponse {
	return filterResponse{CustomFilter: f, Summary: f.Describe()}
}

func (h *Handler) list(c *gin.Context) {
	filters, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]filterResponse, len(filters))
	for i, f := range filters {
		items[i] = toResponse(f)
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	f, err := h.svc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toResponse(*f))
}

func (h *Handler) save(c *gin.Context) {
	var body models.CustomFilter
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := h.svc.Save(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toResponse(*f))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("name")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, Notice(err))
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrNoCriteria):
		response.UnprocessableEntity(c, Notice(err))
	default:
		response.InternalError(c, err)
	}
}
