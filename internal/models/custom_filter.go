package models

import (
	"fmt"
	"strings"
)

// CustomFilter is a named, persisted bundle of filter criteria.
type CustomFilter struct {
	Name      string   `json:"name"`
	Years     []string `json:"years"`
	People    []string `json:"people"`
	Cities    []string `json:"cities"`
	Events    []string `json:"events"`
	CreatedAt int64    `json:"createdAt"` // unix milliseconds
}

// HasCriteria reports whether any criterion is set.
func (f *CustomFilter) HasCriteria() bool {
	return len(f.Years) > 0 || len(f.People) > 0 || len(f.Cities) > 0 || len(f.Events) > 0
}

// SameName compares filter names case-insensitively.
func (f *CustomFilter) SameName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(f.Name), strings.TrimSpace(name))
}

// Describe summarizes the criteria counts, e.g. "2 people • 0 events • 1 cities • 0 years".
func (f *CustomFilter) Describe() string {
	if f == nil || !f.HasCriteria() {
		return "No criteria"
	}
	return fmt.Sprintf("%d people • %d events • %d cities • %d years",
		len(f.People), len(f.Events), len(f.Cities), len(f.Years))
}
