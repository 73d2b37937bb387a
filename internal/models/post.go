package models

import "strings"

type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// ContentBlock is one unit of a post body: a text paragraph or an image.
type ContentBlock struct {
	Type    BlockType `json:"type"`
	Content string    `json:"content,omitempty"`
	URL     string    `json:"url,omitempty"`
}

// Post is one memory entry. Posts are immutable once loaded; optional
// string fields use "" for absent.
type Post struct {
	ID              string         `json:"id"`
	URL             string         `json:"url,omitempty"`
	Title           string         `json:"title"`
	Date            string         `json:"date,omitempty"`
	LocationCity    string         `json:"location_city,omitempty"`
	LocationCountry string         `json:"location_country,omitempty"`
	People          []string       `json:"people"`
	Events          []string       `json:"events"`
	ContentBlocks   []ContentBlock `json:"content_blocks"`
	Content         string         `json:"content,omitempty"`
	ContentText     string         `json:"content_text,omitempty"`
}

// FirstImage returns the url of the first image block, or "".
func (p *Post) FirstImage() string {
	for _, block := range p.ContentBlocks {
		if block.Type == BlockImage && block.URL != "" {
			return block.URL
		}
	}
	return ""
}

// Year is the part of the date before the first '-'.
func (p *Post) Year() string {
	year, _, _ := strings.Cut(p.Date, "-")
	return year
}

// Text is the post's plain text body: the explicit content fields when set,
// otherwise the text blocks joined by blank lines.
func (p *Post) Text() string {
	if p.Content != "" {
		return p.Content
	}
	if p.ContentText != "" {
		return p.ContentText
	}
	parts := make([]string, 0, len(p.ContentBlocks))
	for _, block := range p.ContentBlocks {
		if block.Type == BlockText && strings.TrimSpace(block.Content) != "" {
			parts = append(parts, block.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Location is "city, country" with empty parts dropped.
func (p *Post) Location() string {
	switch {
	case p.LocationCity != "" && p.LocationCountry != "":
		return p.LocationCity + ", " + p.LocationCountry
	case p.LocationCity != "":
		return p.LocationCity
	default:
		return p.LocationCountry
	}
}

// HasPerson reports whether name is in the people list.
func (p *Post) HasPerson(name string) bool {
	for _, person := range p.People {
		if person == name {
			return true
		}
	}
	return false
}

// HasEvent reports whether name is in the events list.
func (p *Post) HasEvent(name string) bool {
	for _, event := range p.Events {
		if event == name {
			return true
		}
	}
	return false
}

// Normalize trims fields, fills the id from the url and drops image blocks
// without a url, unknown block types and blank tags. Text blocks are kept
// even when empty since they reset the running slide caption. It returns
// false when the post has no identity.
func (p *Post) Normalize() bool {
	p.ID = strings.TrimSpace(p.ID)
	p.URL = strings.TrimSpace(p.URL)
	if p.ID == "" {
		p.ID = p.URL
	}
	if p.ID == "" {
		return false
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Date = strings.TrimSpace(p.Date)
	p.LocationCity = strings.TrimSpace(p.LocationCity)
	p.LocationCountry = strings.TrimSpace(p.LocationCountry)
	p.People = compactStrings(p.People)
	p.Events = compactStrings(p.Events)

	blocks := make([]ContentBlock, 0, len(p.ContentBlocks))
	for _, block := range p.ContentBlocks {
		switch block.Type {
		case BlockText:
			blocks = append(blocks, ContentBlock{Type: BlockText, Content: block.Content})
		case BlockImage:
			url := strings.TrimSpace(block.URL)
			if url == "" {
				continue
			}
			blocks = append(blocks, ContentBlock{Type: BlockImage, URL: url})
		}
	}
	p.ContentBlocks = blocks
	return true
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
