package geo

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/locations", h.list)
}

type postLink struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

type locationItem struct {
	Label   string           `json:"label"`
	City    string           `json:"city,omitempty"`
	Country string           `json:"country,omitempty"`
	Count   int              `json:"count"`
	Point   *models.GeoPoint `json:"point,omitempty"`
	Posts   []postLink       `json:"posts"`
}

type locationsResponse struct {
	Data     []locationItem `json:"data"`
	Stats    Stats          `json:"stats"`
	Resolved int            `json:"resolved"`
}

// list accepts the current map view (lat, lon, zoom) so the post links
// return the reader to it. Without one, links point at the location itself.
func (h *Handler) list(c *gin.Context) {
	resolve := c.Query("geocode") == "1" || c.Query("geocode") == "true"
	res, err := h.svc.Locations(c.Request.Context(), resolve)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	view, hasView := mapView(c)
	items := make([]locationItem, len(res.Locations))
	for i, loc := range res.Locations {
		item := locationItem{
			Label:   loc.Label,
			City:    loc.City,
			Country: loc.Country,
			Count:   len(loc.Posts),
			Point:   loc.Point,
			Posts:   make([]postLink, len(loc.Posts)),
		}
		lat, lon, zoom := view.lat, view.lon, view.zoom
		if !hasView && loc.Point != nil {
			lat, lon, zoom = loc.Point.Lat, loc.Point.Lon, DefaultZoom
		}
		for j, p := range loc.Posts {
			item.Posts[j] = postLink{ID: p.ID, Title: p.Title}
			if hasView || loc.Point != nil {
				item.Posts[j].Link = DeepLink(p.ID, lat, lon, zoom)
			}
		}
		items[i] = item
	}
	response.OK(c, locationsResponse{Data: items, Stats: res.Stats, Resolved: res.Resolved})
}

type viewport struct {
	lat, lon float64
	zoom     int
}

func mapView(c *gin.Context) (viewport, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		return viewport{}, false
	}
	zoom, err := strconv.Atoi(c.Query("zoom"))
	if err != nil {
		zoom = DefaultZoom
	}
	return viewport{lat: lat, lon: lon, zoom: zoom}, true
}
