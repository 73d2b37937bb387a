package filter

import (
	"strings"

	"github.com/mx-space/memory-explorer/internal/models"
)

// Membership reports whether a post id is bookmarked.
type Membership interface {
	Has(id string) bool
}

// SearchString is the lowercase text matched by the search box: title, date,
// city, country, people and events joined by spaces, empty parts dropped.
func SearchString(p *models.Post) string {
	parts := make([]string, 0, 4+len(p.People)+len(p.Events))
	for _, v := range []string{p.Title, p.Date, p.LocationCity, p.LocationCountry} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	for _, v := range p.People {
		if v != "" {
			parts = append(parts, v)
		}
	}
	for _, v := range p.Events {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Apply returns the posts matching c, in input order. bookmarks may be nil
// when c.FavoritesOnly is false.
func Apply(posts []*models.Post, c Criteria, bookmarks Membership) []*models.Post {
	m := newMatcher(c, bookmarks)
	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if m.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether a single post satisfies c.
func Matches(p *models.Post, c Criteria, bookmarks Membership) bool {
	return newMatcher(c, bookmarks).match(p)
}

type matcher struct {
	search    string
	c         Criteria
	bookmarks Membership
}

func newMatcher(c Criteria, bookmarks Membership) matcher {
	return matcher{search: strings.ToLower(strings.TrimSpace(c.Search)), c: c, bookmarks: bookmarks}
}

func (m matcher) match(p *models.Post) bool {
	if m.search != "" && !strings.Contains(SearchString(p), m.search) {
		return false
	}
	if len(m.c.Years) > 0 && !anyPrefix(p.Date, m.c.Years) {
		return false
	}
	if len(m.c.Cities) > 0 && !contains(m.c.Cities, p.LocationCity) {
		return false
	}
	if len(m.c.Events) > 0 && !anyEvent(p, m.c.Events) {
		return false
	}
	for _, person := range m.c.Persons {
		if !p.HasPerson(person) {
			return false
		}
	}
	if m.c.FavoritesOnly && (m.bookmarks == nil || !m.bookmarks.Has(p.ID)) {
		return false
	}
	return true
}

func anyPrefix(date string, years []string) bool {
	for _, y := range years {
		if strings.HasPrefix(date, y) {
			return true
		}
	}
	return false
}

func anyEvent(p *models.Post, events []string) bool {
	for _, e := range events {
		if p.HasEvent(e) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
