// Package ranking orders posts for a free-text query, either through an AI
// provider or with the local term-frequency score.
package ranking

import (
	"sort"
	"strings"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/modules/filter"
)

const (
	DefaultCandidateLimit = 25
	DefaultTopN           = 10
	MaxTopN               = 50
	SnippetLength         = 400
)

// Scored pairs a post with its local relevance.
type Scored struct {
	Post  *models.Post
	Score float64
}

// Candidate is the compact post description sent to the provider.
type Candidate struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Date    string   `json:"date"`
	City    string   `json:"city"`
	People  []string `json:"people"`
	Events  []string `json:"events"`
	Snippet string   `json:"snippet"`
}

// Terms splits a query into lowercase whitespace-separated terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Score adds, per term, 2 when the composed search string contains it plus
// its occurrence count, then 0.1 per person and per event.
func Score(p *models.Post, terms []string) float64 {
	haystack := filter.SearchString(p)
	score := 0.0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			score += 2
		}
		score += float64(strings.Count(haystack, t))
	}
	return score + 0.1*float64(len(p.People)) + 0.1*float64(len(p.Events))
}

// RankLocal scores every post and sorts by score descending. Equal scores
// keep the input order.
func RankLocal(posts []*models.Post, query string) []Scored {
	terms := Terms(query)
	scored := make([]Scored, len(posts))
	for i, p := range posts {
		scored[i] = Scored{Post: p, Score: Score(p, terms)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Snippet is the post text with whitespace collapsed, cut to limit runes.
func Snippet(p *models.Post, limit int) string {
	text := strings.Join(strings.Fields(p.Text()), " ")
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}

// BuildCandidates takes the first limit scored posts.
func BuildCandidates(scored []Scored, limit int) []Candidate {
	if limit > len(scored) {
		limit = len(scored)
	}
	out := make([]Candidate, limit)
	for i := 0; i < limit; i++ {
		p := scored[i].Post
		out[i] = Candidate{
			ID:      p.ID,
			Title:   p.Title,
			Date:    p.Date,
			City:    p.LocationCity,
			People:  append([]string{}, p.People...),
			Events:  append([]string{}, p.Events...),
			Snippet: Snippet(p, SnippetLength),
		}
	}
	return out
}

// ClampTopN maps a requested result count onto 1..MaxTopN. Zero or invalid
// values take def.
func ClampTopN(n, def int) int {
	if def <= 0 {
		def = DefaultTopN
	}
	if n <= 0 {
		n = def
	}
	if n > MaxTopN {
		n = MaxTopN
	}
	if n < 1 {
		n = 1
	}
	return n
}

func candidateIDs(candidates []Candidate, n int) []string {
	if n > len(candidates) {
		n = len(candidates)
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = candidates[i].ID
	}
	return ids
}
