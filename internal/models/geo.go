package models

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location groups the posts that share a "city, country" label.
type Location struct {
	Label   string    `json:"label"`
	City    string    `json:"city,omitempty"`
	Country string    `json:"country,omitempty"`
	Posts   []*Post   `json:"posts"`
	Point   *GeoPoint `json:"point,omitempty"`
}
