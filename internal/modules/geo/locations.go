// Package geo groups posts by place and resolves places to coordinates for
// the map client.
package geo

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/mx-space/memory-explorer/internal/models"
)

// DefaultZoom is used for deep links when the caller gives no map zoom.
const DefaultZoom = 6

// Stats summarize the located posts.
type Stats struct {
	Posts     int `json:"posts"`
	Locations int `json:"locations"`
	Countries int `json:"countries"`
}

// Label joins the non-empty parts as "city, country".
func Label(city, country string) string {
	parts := make([]string, 0, 2)
	if city != "" {
		parts = append(parts, city)
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

// Group buckets posts by label, skipping posts without city and country.
// The result is ordered by post count descending, ties in first-seen order.
func Group(posts []*models.Post) ([]*models.Location, Stats) {
	byLabel := map[string]*models.Location{}
	var order []*models.Location
	countries := map[string]struct{}{}
	located := 0

	for _, p := range posts {
		label := Label(p.LocationCity, p.LocationCountry)
		if label == "" {
			continue
		}
		located++
		if p.LocationCountry != "" {
			countries[p.LocationCountry] = struct{}{}
		}
		loc, ok := byLabel[label]
		if !ok {
			loc = &models.Location{Label: label, City: p.LocationCity, Country: p.LocationCountry}
			byLabel[label] = loc
			order = append(order, loc)
		}
		loc.Posts = append(loc.Posts, p)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return len(order[i].Posts) > len(order[j].Posts)
	})
	return order, Stats{Posts: located, Locations: len(order), Countries: len(countries)}
}

// DeepLink opens a post in the explorer and remembers the map view to
// return to.
func DeepLink(postID string, lat, lon float64, zoom int) string {
	return fmt.Sprintf("./index.html?post=%s&from=map&lat=%.5f&lon=%.5f&zoom=%d",
		url.QueryEscape(postID), lat, lon, zoom)
}
