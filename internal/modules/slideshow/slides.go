// Package slideshow builds slides from posts and plays them on a timer.
package slideshow

import (
	"regexp"

	"github.com/mx-space/memory-explorer/internal/models"
)

var sizeSegment = regexp.MustCompile(`/s\d+/`)

// UpgradeResolution asks the image host for the original size by rewriting
// the first /s<digits>/ path segment to /s0/.
func UpgradeResolution(url string) string {
	loc := sizeSegment.FindStringIndex(url)
	if loc == nil {
		return url
	}
	return url[:loc[0]] + "/s0/" + url[loc[1]:]
}

// BuildSlides walks the post's blocks in order. Each image is captioned with
// the most recent text block, or the title when none has been seen.
func BuildSlides(p *models.Post, upgrade bool) []models.Slide {
	var slides []models.Slide
	caption := ""
	for _, block := range p.ContentBlocks {
		switch block.Type {
		case models.BlockText:
			caption = block.Content
		case models.BlockImage:
			if block.URL == "" {
				continue
			}
			url := block.URL
			if upgrade {
				url = UpgradeResolution(url)
			}
			c := caption
			if c == "" {
				c = p.Title
			}
			slides = append(slides, models.Slide{ImageURL: url, Caption: c, PostID: p.ID, PostTitle: p.Title})
		}
	}
	return slides
}

// BuildSequence concatenates the upgraded slides of each post in order.
func BuildSequence(posts []*models.Post) []models.Slide {
	var slides []models.Slide
	for _, p := range posts {
		slides = append(slides, BuildSlides(p, true)...)
	}
	return slides
}

// Wrap maps any index onto [0, n) modulo n. n must be positive.
func Wrap(index, n int) int {
	return ((index % n) + n) % n
}
