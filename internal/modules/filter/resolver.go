package filter

import "github.com/mx-space/memory-explorer/internal/models"

// Mode names the authoritative input of the resolved filter.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeCustom Mode = "custom"
	ModeAI     Mode = "ai"
)

// Input is everything the resolver looks at.
type Input struct {
	Search        string
	Manual        Manual
	FavoritesOnly bool
	Custom        *models.CustomFilter
	// AIResults is the ranked id sequence of the last AI search; nil when
	// no AI result is active.
	AIResults []string
	// AIConstraints keeps the manual controls and favorites in force on
	// top of an AI result.
	AIConstraints bool
}

// Resolved is the base list and criteria the engine should run.
type Resolved struct {
	Mode     Mode
	Base     []*models.Post
	Criteria Criteria
}

// Lookup resolves a post id against the store.
type Lookup func(id string) (*models.Post, bool)

// Resolve picks the authoritative mode: an active AI result, else a selected
// custom filter, else the manual controls.
func Resolve(in Input, posts []*models.Post, lookup Lookup) Resolved {
	if in.AIResults != nil {
		base := make([]*models.Post, 0, len(in.AIResults))
		seen := make(map[string]struct{}, len(in.AIResults))
		for _, id := range in.AIResults {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if p, ok := lookup(id); ok {
				base = append(base, p)
			}
		}
		r := Resolved{Mode: ModeAI, Base: base}
		if in.AIConstraints {
			r.Criteria = in.Manual.criteria()
			r.Criteria.FavoritesOnly = in.FavoritesOnly
		}
		return r
	}

	if in.Custom != nil {
		return Resolved{
			Mode: ModeCustom,
			Base: posts,
			Criteria: Criteria{
				Search:        in.Search,
				Years:         nonEmpty(in.Custom.Years),
				Cities:        nonEmpty(in.Custom.Cities),
				Events:        nonEmpty(in.Custom.Events),
				Persons:       nonEmpty(in.Custom.People),
				FavoritesOnly: in.FavoritesOnly,
			},
		}
	}

	c := in.Manual.criteria()
	c.Search = in.Search
	c.FavoritesOnly = in.FavoritesOnly
	return Resolved{Mode: ModeManual, Base: posts, Criteria: c}
}

// Run resolves the input and applies it.
func Run(in Input, posts []*models.Post, lookup Lookup, bookmarks Membership) (Resolved, []*models.Post) {
	r := Resolve(in, posts, lookup)
	return r, Apply(r.Base, r.Criteria, bookmarks)
}
