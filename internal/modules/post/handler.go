package post

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/pkg/pagination"
	"github.com/mx-space/memory-explorer/internal/pkg/response"
)

// Handler serves the read-only post endpoints.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts post routes onto the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/posts", h.list)
	rg.GET("/posts/lookup", h.lookup)
	rg.GET("/stats", h.stats)
	rg.GET("/facets", h.facets)
}

// list GET /posts
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag := pagination.Slice(h.store.Posts(), q)
	response.Paged(c, items, pag)
}

// lookup GET /posts/lookup?id=
func (h *Handler) lookup(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		response.BadRequest(c, "id is required")
		return
	}
	p, ok := h.store.Lookup(id)
	if !ok {
		response.NotFoundMsg(c, "Post not found.")
		return
	}
	response.OK(c, p)
}

// stats GET /stats
func (h *Handler) stats(c *gin.Context) {
	response.OK(c, h.store.Stats())
}

// facets GET /facets
func (h *Handler) facets(c *gin.Context) {
	response.OK(c, h.store.Facets())
}
