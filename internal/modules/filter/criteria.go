// Package filter resolves the active filter state and applies it to posts.
package filter

import "strings"

// All is the "no selection" value of the single-choice manual controls.
const All = "all"

// Criteria is the effective filter. Empty sets impose no constraint.
// Years, Cities and Events match ANY requested value; Persons requires ALL.
type Criteria struct {
	Search        string   `json:"search,omitempty"`
	Years         []string `json:"years,omitempty"`
	Cities        []string `json:"cities,omitempty"`
	Events        []string `json:"events,omitempty"`
	Persons       []string `json:"persons,omitempty"`
	FavoritesOnly bool     `json:"favoritesOnly,omitempty"`
}

func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Search) == "" && len(c.Years) == 0 && len(c.Cities) == 0 &&
		len(c.Events) == 0 && len(c.Persons) == 0 && !c.FavoritesOnly
}

// Manual holds the basic per-field controls.
type Manual struct {
	Year    string   `json:"year"`
	City    string   `json:"city"`
	Event   string   `json:"event"`
	Persons []string `json:"persons"`
}

// DefaultManual has every control unset.
func DefaultManual() Manual {
	return Manual{Year: All, City: All, Event: All, Persons: []string{}}
}

func (m Manual) criteria() Criteria {
	var c Criteria
	if v := single(m.Year); v != "" {
		c.Years = []string{v}
	}
	if v := single(m.City); v != "" {
		c.Cities = []string{v}
	}
	if v := single(m.Event); v != "" {
		c.Events = []string{v}
	}
	c.Persons = nonEmpty(m.Persons)
	return c
}

// Clone copies the persons slice so the copy can be stashed safely.
func (m Manual) Clone() Manual {
	m.Persons = append([]string{}, m.Persons...)
	return m
}

func single(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == All {
		return ""
	}
	return v
}

func nonEmpty(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
