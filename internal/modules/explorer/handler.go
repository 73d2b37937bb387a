package explorer

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/modules/slideshow"
	"github.com/mx-space/memory-explorer/internal/pkg/jwt"
	"github.com/mx-space/memory-explorer/internal/pkg/response"
)

const (
	HeaderToken     = "X-Session-Token"
	queryToken      = "session"
	sessionCtxKey   = "explorer.session"
	notFoundSession = "Session not found."
)

// Handler exposes session creation and the action endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)

	g := rg.Group("/session", h.authenticate)
	g.GET("/view", h.view)
	g.DELETE("", h.end)
	g.POST("/actions", h.dispatch)
	g.POST("/ai-search", h.aiSearch)
	g.GET("/slideshow", h.slideshowView)
	g.POST("/slideshow/actions", h.dispatchSlideshow)
}

func (h *Handler) authenticate(c *gin.Context) {
	token := strings.TrimSpace(c.GetHeader(HeaderToken))
	if token == "" {
		token = strings.TrimSpace(c.Query(queryToken))
	}
	ctrl, err := h.svc.Session(token)
	switch {
	case errors.Is(err, jwt.ErrInvalidToken):
		response.Unauthorized(c)
		return
	case errors.Is(err, ErrSessionNotFound):
		response.NotFoundMsg(c, notFoundSession)
		return
	case err != nil:
		response.InternalError(c, err)
		return
	}
	c.Set(sessionCtxKey, ctrl)
	c.Next()
}

func controllerFrom(c *gin.Context) *Controller {
	return c.MustGet(sessionCtxKey).(*Controller)
}

// create POST /sessions?post=&from=map&lat=&lon=&zoom=
func (h *Handler) create(c *gin.Context) {
	created, err := h.svc.Create(c.Request.Context(), CreateRequest{
		Post: c.Query("post"),
		From: c.Query("from"),
		Lat:  c.Query("lat"),
		Lon:  c.Query("lon"),
		Zoom: c.Query("zoom"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, created)
}

func (h *Handler) view(c *gin.Context) {
	response.OK(c, controllerFrom(c).View())
}

func (h *Handler) end(c *gin.Context) {
	h.svc.End(controllerFrom(c))
	response.NoContent(c)
}

func (h *Handler) dispatch(c *gin.Context) {
	var a Action
	if err := c.ShouldBindJSON(&a); err != nil {
		response.BadRequest(c, "invalid action")
		return
	}
	view, err := controllerFrom(c).Dispatch(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, view)
}

type aiSearchRequest struct {
	Query string `json:"query"`
	TopN  int    `json:"top_n"`
}

type aiSearchResponse struct {
	View
	Superseded bool `json:"superseded,omitempty"`
}

func (h *Handler) aiSearch(c *gin.Context) {
	var req aiSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid search request")
		return
	}
	view, err := controllerFrom(c).AISearch(c.Request.Context(), req.Query, req.TopN)
	if err != nil && !errors.Is(err, ErrSuperseded) {
		writeError(c, err)
		return
	}
	response.OK(c, aiSearchResponse{View: view, Superseded: err != nil})
}

func (h *Handler) slideshowView(c *gin.Context) {
	response.OK(c, controllerFrom(c).Slideshow())
}

func (h *Handler) dispatchSlideshow(c *gin.Context) {
	var a Action
	if err := c.ShouldBindJSON(&a); err != nil {
		response.BadRequest(c, "invalid action")
		return
	}
	view, err := controllerFrom(c).DispatchSlideshow(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, view)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownAction), errors.Is(err, ErrNoActivePost),
		errors.Is(err, slideshow.ErrNotPlaying), errors.Is(err, slideshow.ErrNoSlides):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrPostNotFound):
		response.NotFoundMsg(c, "Post not found.")
	default:
		response.InternalError(c, err)
	}
}
