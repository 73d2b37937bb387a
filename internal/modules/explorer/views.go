package explorer

import (
	"bytes"
	"html/template"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/modules/filter"
	"github.com/mx-space/memory-explorer/internal/modules/post"
	"github.com/mx-space/memory-explorer/internal/modules/slideshow"
	"github.com/mx-space/memory-explorer/internal/pkg/pagination"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

const (
	cardPeople       = 3
	cardEvents       = 2
	detailPeople     = 5
	timelinePerGroup = 8
	bookmarkListSize = 15

	unknownDate  = "Unknown"
	unknownPlace = "Somewhere"
	emptyResult  = "No posts found for those filters."
	noFavorites  = "No favorites yet"
)

// Card is one tile of the quick view grid.
type Card struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Meta        string   `json:"meta"`
	Image       string   `json:"image"`
	Placeholder bool     `json:"placeholder"`
	People      []string `json:"people"`
	Events      []string `json:"events"`
}

type QuickView struct {
	Cards   []Card `json:"cards"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"hasMore"`
}

type TimelineCard struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	City        string `json:"city"`
	Image       string `json:"image"`
	Placeholder bool   `json:"placeholder"`
}

// TimelineGroup holds the posts sharing one date key.
type TimelineGroup struct {
	Key   string         `json:"key"`
	Total int            `json:"total"`
	Cards []TimelineCard `json:"cards"`
}

type DetailBlock struct {
	Type models.BlockType `json:"type"`
	HTML string           `json:"html,omitempty"`
	URL  string           `json:"url,omitempty"`
}

// Detail is the single post page.
type Detail struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	URL        string         `json:"url,omitempty"`
	DateLine   string         `json:"dateLine"`
	People     []string       `json:"people"`
	Events     []string       `json:"events"`
	Blocks     []DetailBlock  `json:"blocks"`
	Bookmarked bool           `json:"bookmarked"`
	Slides     []models.Slide `json:"slides"`
	SlideIndex int            `json:"slideIndex"`
	Slide      *models.Slide  `json:"slide,omitempty"`
	MapBack    string         `json:"mapBack,omitempty"`
}

type BookmarkItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Meta  string `json:"meta"`
}

type BookmarkList struct {
	Items []BookmarkItem `json:"items"`
	Empty string         `json:"empty,omitempty"`
}

type Filters struct {
	Search        string   `json:"search"`
	Year          string   `json:"year"`
	City          string   `json:"city"`
	Event         string   `json:"event"`
	Persons       []string `json:"persons"`
	FavoritesOnly bool     `json:"favoritesOnly"`
	Custom        string   `json:"custom,omitempty"`
	CustomMeta    string   `json:"customMeta"`
	Timeline      bool     `json:"timeline"`
}

type AIStatus struct {
	Query   string `json:"query,omitempty"`
	Active  bool   `json:"active"`
	Loading bool   `json:"loading"`
	Results int    `json:"results"`
}

type Stats struct {
	post.Stats
	Showing int `json:"showing"`
}

// View is the complete render of one session.
type View struct {
	SessionID string          `json:"sessionId"`
	Screen    Screen          `json:"screen"`
	Mode      filter.Mode     `json:"mode"`
	Filters   Filters         `json:"filters"`
	AI        AIStatus        `json:"ai"`
	Stats     Stats           `json:"stats"`
	QuickView *QuickView      `json:"quickView,omitempty"`
	Timeline  []TimelineGroup `json:"timeline,omitempty"`
	Empty     string          `json:"empty,omitempty"`
	Detail    *Detail         `json:"detail,omitempty"`
	Bookmarks BookmarkList    `json:"bookmarks"`
	Notice    string          `json:"notice,omitempty"`
}

// BuildCard renders a grid tile.
func BuildCard(p *models.Post) Card {
	image, placeholder := cardImage(p)
	return Card{
		ID:          p.ID,
		Title:       p.Title,
		Meta:        or(p.Date, unknownDate) + " · " + or(p.LocationCity, unknownPlace),
		Image:       image,
		Placeholder: placeholder,
		People:      head(p.People, cardPeople),
		Events:      head(p.Events, cardEvents),
	}
}

// BuildQuickView renders the visible prefix of the filtered posts.
func BuildQuickView(posts []*models.Post, w pagination.Window) *QuickView {
	visible, more := pagination.Apply(w, posts)
	cards := make([]Card, 0, len(visible))
	for _, p := range visible {
		cards = append(cards, BuildCard(p))
	}
	return &QuickView{Cards: cards, Limit: w.Limit(), HasMore: more}
}

// BuildTimeline groups posts by date, newest key first, showing at most
// eight posts per group.
func BuildTimeline(posts []*models.Post) []TimelineGroup {
	groups := map[string][]*models.Post{}
	var keys []string
	for _, p := range posts {
		key := or(p.Date, unknownDate)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], p)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]TimelineGroup, 0, len(keys))
	for _, key := range keys {
		members := groups[key]
		g := TimelineGroup{Key: key, Total: len(members)}
		for _, p := range head(members, timelinePerGroup) {
			image, placeholder := cardImage(p)
			g.Cards = append(g.Cards, TimelineCard{
				ID:          p.ID,
				Title:       p.Title,
				City:        p.LocationCity,
				Image:       image,
				Placeholder: placeholder,
			})
		}
		out = append(out, g)
	}
	return out
}

// DateLine joins the date and "city country" with " - ", skipping empties.
func DateLine(p *models.Post) string {
	place := strings.TrimSpace(p.LocationCity + " " + p.LocationCountry)
	parts := make([]string, 0, 2)
	for _, v := range []string{p.Date, place} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " - ")
}

// BuildDetail renders the post page with its inline slides.
func BuildDetail(p *models.Post, slideIndex int, bookmarked bool, mr *MapReturn) *Detail {
	d := &Detail{
		ID:         p.ID,
		Title:      p.Title,
		URL:        p.URL,
		DateLine:   DateLine(p),
		People:     head(p.People, detailPeople),
		Events:     append([]string{}, p.Events...),
		Bookmarked: bookmarked,
		Slides:     slideshow.BuildSlides(p, false),
	}
	for _, block := range p.ContentBlocks {
		switch block.Type {
		case models.BlockText:
			if strings.TrimSpace(block.Content) == "" {
				continue
			}
			d.Blocks = append(d.Blocks, DetailBlock{Type: block.Type, HTML: renderText(block.Content)})
		case models.BlockImage:
			d.Blocks = append(d.Blocks, DetailBlock{Type: block.Type, URL: block.URL})
		}
	}
	if len(d.Slides) > 0 {
		d.SlideIndex = slideshow.Wrap(slideIndex, len(d.Slides))
		slide := d.Slides[d.SlideIndex]
		d.Slide = &slide
	}
	if mr != nil {
		d.MapBack = mr.Link()
	}
	return d
}

// BuildBookmarks lists up to fifteen bookmarked posts in store order.
func BuildBookmarks(posts []*models.Post, bookmarks filter.Membership) BookmarkList {
	list := BookmarkList{Items: []BookmarkItem{}}
	for _, p := range posts {
		if len(list.Items) == bookmarkListSize {
			break
		}
		if !bookmarks.Has(p.ID) {
			continue
		}
		list.Items = append(list.Items, BookmarkItem{
			ID:    p.ID,
			Title: p.Title,
			Meta:  p.Date + " · " + p.LocationCity,
		})
	}
	if len(list.Items) == 0 {
		list.Empty = noFavorites
	}
	return list
}

var textEngine = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
)

func renderText(text string) string {
	var out bytes.Buffer
	if err := textEngine.Convert([]byte(text), &out); err != nil {
		return "<p>" + template.HTMLEscapeString(text) + "</p>"
	}
	return out.String()
}

func cardImage(p *models.Post) (string, bool) {
	if image := p.FirstImage(); image != "" {
		return image, false
	}
	return Placeholder(p.Title), true
}

// Placeholder is a gradient SVG data url whose hue is derived from text.
func Placeholder(text string) string {
	hue := int(math.Abs(float64(hashCode(text)))) % 360
	svg := "<svg xmlns='http://www.w3.org/2000/svg' width='400' height='300'>" +
		"<defs><linearGradient id='g' x1='0%' y1='0%' x2='100%' y2='100%'>" +
		"<stop offset='0%' stop-color='hsl(" + strconv.Itoa(hue) + ",70%,55%)'/>" +
		"<stop offset='100%' stop-color='hsl(" + strconv.Itoa((hue+40)%360) + ",70%,50%)'/>" +
		"</linearGradient></defs>" +
		"<rect width='400' height='300' fill='url(#g)'/></svg>"
	return "data:image/svg+xml," + encodeURIComponent(svg)
}

// hashCode is the 32-bit string hash browsers use for placeholder hues,
// computed over UTF-16 code units.
func hashCode(s string) int32 {
	var hash int32
	for _, unit := range utf16.Encode([]rune(s)) {
		hash = (hash << 5) - hash + int32(unit)
	}
	return hash
}

var uriComponentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentUnescapes.Replace(url.QueryEscape(s))
}

func head[T any](in []T, n int) []T {
	if len(in) > n {
		in = in[:n]
	}
	return append([]T{}, in...)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
