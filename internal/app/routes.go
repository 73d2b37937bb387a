package app

import (
	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/middleware"
	"github.com/mx-space/memory-explorer/internal/modules/bookmark"
	"github.com/mx-space/memory-explorer/internal/modules/customfilter"
	"github.com/mx-space/memory-explorer/internal/modules/explorer"
	"github.com/mx-space/memory-explorer/internal/modules/gateway"
	"github.com/mx-space/memory-explorer/internal/modules/geo"
	"github.com/mx-space/memory-explorer/internal/modules/post"
	"github.com/mx-space/memory-explorer/internal/pkg/response"
)

const apiPrefix = "/api/v2"

func (a *App) registerRoutes() {
	r := a.router
	svcs := a.services

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	gateway.RegisterRoutes(r.Group(""), svcs.hub)

	api := r.Group(apiPrefix)
	if a.cfg.RateLimit.Enable {
		api.Use(middleware.RateLimit(a.rc, a.cfg.RateLimit.PerMinute, a.logger))
	}

	api.GET("/ping", a.ping)
	api.GET("/cron", a.listJobs)

	post.NewHandler(svcs.posts).RegisterRoutes(api)
	geo.NewHandler(svcs.geo).RegisterRoutes(api)
	customfilter.NewHandler(svcs.filters).RegisterRoutes(api)
	bookmark.NewHandler(svcs.bookmarks).RegisterRoutes(api)
	explorer.NewHandler(svcs.explorer).RegisterRoutes(api)
}

// ping GET /ping
func (a *App) ping(c *gin.Context) {
	source, loadedAt := a.services.posts.Loaded()
	data := gin.H{
		"name":     "memory-explorer",
		"env":      a.cfg.Env,
		"storage":  a.cfg.Storage.Driver,
		"uptime":   humanizeDuration(a.uptime()),
		"posts":    len(a.services.posts.Posts()),
		"sessions": a.services.explorer.Len(),
		"source":   source,
	}
	if !loadedAt.IsZero() {
		data["loadedAt"] = loadedAt
	}
	response.OK(c, data)
}

// listJobs GET /cron
func (a *App) listJobs(c *gin.Context) {
	response.OK(c, a.sched.List())
}
