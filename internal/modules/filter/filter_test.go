package filter

import (
	"testing"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/stretchr/testify/require"
)

type bookmarkSet map[string]bool

func (b bookmarkSet) Has(id string) bool { return b[id] }

func ids(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func lookupIn(posts []*models.Post) Lookup {
	return func(id string) (*models.Post, bool) {
		for _, p := range posts {
			if p.ID == id {
				return p, true
			}
		}
		return nil, false
	}
}

func samplePosts() []*models.Post {
	return []*models.Post{
		{ID: "p1", Title: "Trip to Paris", Date: "2020-09-01", LocationCity: "Paris", LocationCountry: "France", People: []string{"Ana", "Ben"}, Events: []string{"Holiday"}},
		{ID: "p2", Title: "Birthday", Date: "2020-05-01", LocationCity: "Rome", People: []string{"Ana"}, Events: []string{"Birthday"}},
		{ID: "p3", Title: "Conference", Date: "2019-01-01", LocationCity: "Oslo", People: []string{"Ben", "Cleo"}, Events: []string{"Work"}},
		{ID: "p4", Title: "Quiet day", People: []string{"Ana", "Ben", "Cleo"}},
	}
}

func TestEmptyCriteriaReturnsEverythingInOrder(t *testing.T) {
	posts := samplePosts()
	out := Apply(posts, Criteria{}, nil)
	require.Equal(t, ids(posts), ids(out))
	require.True(t, Criteria{}.IsEmpty())
}

func TestPersonsAllOfEventsAnyOf(t *testing.T) {
	posts := samplePosts()

	byPersons := Apply(posts, Criteria{Persons: []string{"Ana", "Ben"}}, nil)
	require.Equal(t, []string{"p1", "p4"}, ids(byPersons))
	for _, p := range byPersons {
		require.True(t, p.HasPerson("Ana") && p.HasPerson("Ben"))
	}

	byEvents := Apply(posts, Criteria{Events: []string{"Holiday", "Work"}}, nil)
	require.Equal(t, []string{"p1", "p3"}, ids(byEvents))
}

func TestYearsPrefixScenario(t *testing.T) {
	posts := []*models.Post{
		{ID: "oslo", Date: "2020-09-01", LocationCity: "Oslo"},
		{ID: "rome-05", Date: "2020-05-01", LocationCity: "Rome"},
		{ID: "rome-19", Date: "2019-01-01", LocationCity: "Rome"},
	}
	out := Apply(posts, Criteria{Years: []string{"2020"}}, nil)
	require.Equal(t, []string{"oslo", "rome-05"}, ids(out))
}

func TestCitiesAnyOf(t *testing.T) {
	out := Apply(samplePosts(), Criteria{Cities: []string{"Rome", "Oslo"}}, nil)
	require.Equal(t, []string{"p2", "p3"}, ids(out))
}

func TestFavoritesOnlyScenario(t *testing.T) {
	posts := []*models.Post{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}
	out := Apply(posts, Criteria{FavoritesOnly: true}, bookmarkSet{"p2": true})
	require.Equal(t, []string{"p2"}, ids(out))

	require.Empty(t, Apply(posts, Criteria{FavoritesOnly: true}, nil))
}

func TestSearchScenario(t *testing.T) {
	paris := &models.Post{ID: "a", Title: "trip to paris", Date: "2019"}
	rome := &models.Post{ID: "b", Title: "trip to rome"}
	require.Equal(t, "trip to paris 2019", SearchString(paris))

	require.True(t, Matches(paris, Criteria{Search: "paris"}, nil))
	require.False(t, Matches(rome, Criteria{Search: "paris"}, nil))
	require.True(t, Matches(paris, Criteria{Search: "  PARIS "}, nil))
}

func TestSearchCoversPeopleAndEvents(t *testing.T) {
	out := Apply(samplePosts(), Criteria{Search: "cleo"}, nil)
	require.Equal(t, []string{"p3", "p4"}, ids(out))
	out = Apply(samplePosts(), Criteria{Search: "birthday"}, nil)
	require.Equal(t, []string{"p2"}, ids(out))
}

func TestResolveManual(t *testing.T) {
	posts := samplePosts()
	manual := Manual{Year: "2020", City: All, Event: All, Persons: []string{"Ana", ""}}
	r, out := Run(Input{Manual: manual, Search: "trip"}, posts, lookupIn(posts), nil)
	require.Equal(t, ModeManual, r.Mode)
	require.Equal(t, []string{"2020"}, r.Criteria.Years)
	require.Empty(t, r.Criteria.Cities)
	require.Equal(t, []string{"Ana"}, r.Criteria.Persons)
	require.Equal(t, []string{"p1"}, ids(out))
}

func TestResolveCustomIgnoresManualControls(t *testing.T) {
	posts := samplePosts()
	in := Input{
		Manual: Manual{Year: "2019", City: All, Event: All},
		Custom: &models.CustomFilter{Name: "Ana", People: []string{"Ana", ""}, Years: []string{"2020"}},
	}
	r, out := Run(in, posts, lookupIn(posts), nil)
	require.Equal(t, ModeCustom, r.Mode)
	require.Equal(t, []string{"p1", "p2"}, ids(out))

	in.FavoritesOnly = true
	_, out = Run(in, posts, lookupIn(posts), bookmarkSet{"p2": true})
	require.Equal(t, []string{"p2"}, ids(out))
}

func TestResolveAIOrderAndUnknownIDs(t *testing.T) {
	posts := samplePosts()
	in := Input{
		Search:        "paris",
		Manual:        Manual{Year: "2019", City: All, Event: All},
		FavoritesOnly: true,
		Custom:        &models.CustomFilter{Name: "x", Cities: []string{"Oslo"}},
		AIResults:     []string{"p4", "gone", "p2", "p4"},
	}
	r, out := Run(in, posts, lookupIn(posts), bookmarkSet{})
	require.Equal(t, ModeAI, r.Mode)
	require.Equal(t, []string{"p4", "p2"}, ids(out))
	require.True(t, r.Criteria.IsEmpty())
}

func TestResolveAIWithConstraints(t *testing.T) {
	posts := samplePosts()
	in := Input{
		Search:        "nothing matches this",
		Manual:        Manual{Year: All, City: All, Event: All, Persons: []string{"Cleo"}},
		AIResults:     []string{"p4", "p2", "p3"},
		AIConstraints: true,
	}
	r, out := Run(in, posts, lookupIn(posts), nil)
	require.Empty(t, r.Criteria.Search)
	require.Equal(t, []string{"p4", "p3"}, ids(out))
}

func TestResolveEmptyAIResultIsStillAIMode(t *testing.T) {
	posts := samplePosts()
	r, out := Run(Input{AIResults: []string{}}, posts, lookupIn(posts), nil)
	require.Equal(t, ModeAI, r.Mode)
	require.Empty(t, out)
}
