package slideshow

import (
	"errors"
	"math/rand/v2"

	"github.com/mx-space/memory-explorer/internal/models"
)

// RandomPickCount is how many posts AddRandom samples.
const RandomPickCount = 5

var (
	ErrNoMatches = errors.New("no posts match the current filters")
	ErrNoImages  = errors.New("no images found in selected posts")
)

// Selection is the ordered, duplicate-free post list of the composer.
// It is not safe for concurrent use.
type Selection struct {
	posts   []*models.Post
	shuffle func(n int, swap func(i, j int))
}

func NewSelection() *Selection {
	return &Selection{shuffle: rand.Shuffle}
}

// Add appends p unless it is already selected.
func (s *Selection) Add(p *models.Post) bool {
	for _, existing := range s.posts {
		if existing.ID == p.ID {
			return false
		}
	}
	s.posts = append(s.posts, p)
	return true
}

// AddAll appends every post not yet selected and returns how many were added.
func (s *Selection) AddAll(posts []*models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, ErrNoMatches
	}
	added := 0
	for _, p := range posts {
		if s.Add(p) {
			added++
		}
	}
	return added, nil
}

// AddRandom appends up to n posts sampled from posts.
func (s *Selection) AddRandom(posts []*models.Post, n int) (int, error) {
	if len(posts) == 0 {
		return 0, ErrNoMatches
	}
	shuffled := append([]*models.Post(nil), posts...)
	s.shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n < len(shuffled) {
		shuffled = shuffled[:n]
	}
	added := 0
	for _, p := range shuffled {
		if s.Add(p) {
			added++
		}
	}
	return added, nil
}

// Move swaps the post at index with its neighbour delta positions away.
func (s *Selection) Move(index, delta int) bool {
	target := index + delta
	if index < 0 || index >= len(s.posts) || target < 0 || target >= len(s.posts) {
		return false
	}
	s.posts[index], s.posts[target] = s.posts[target], s.posts[index]
	return true
}

// Remove drops the post at index.
func (s *Selection) Remove(index int) bool {
	if index < 0 || index >= len(s.posts) {
		return false
	}
	s.posts = append(s.posts[:index], s.posts[index+1:]...)
	return true
}

func (s *Selection) Clear() { s.posts = nil }

func (s *Selection) Len() int { return len(s.posts) }

// Posts returns a copy of the selected posts in order.
func (s *Selection) Posts() []*models.Post {
	return append([]*models.Post(nil), s.posts...)
}

// Slides builds the full-resolution slide sequence of the selection.
func (s *Selection) Slides() ([]models.Slide, error) {
	slides := BuildSequence(s.posts)
	if len(slides) == 0 {
		return nil, ErrNoImages
	}
	return slides, nil
}
