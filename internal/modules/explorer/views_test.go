package explorer

import (
	"net/url"
	"strings"
	"testing"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/pagination"
	"github.com/stretchr/testify/require"
)

type set map[string]bool

func (s set) Has(id string) bool { return s[id] }

func TestHashCodeMatchesBrowser(t *testing.T) {
	require.EqualValues(t, 0, hashCode(""))
	require.EqualValues(t, 97, hashCode("a"))
	require.EqualValues(t, 3105, hashCode("ab"))
	// "hello world" overflows 32 bits in the browser too.
	require.EqualValues(t, 1794106052, hashCode("hello world"))
}

func TestPlaceholder(t *testing.T) {
	src := Placeholder("")
	require.True(t, strings.HasPrefix(src, "data:image/svg+xml,"))
	require.NotContains(t, src, " ")

	svg, err := url.PathUnescape(strings.TrimPrefix(src, "data:image/svg+xml,"))
	require.NoError(t, err)
	require.Contains(t, svg, "hsl(0,70%,55%)")
	require.Contains(t, svg, "hsl(40,70%,50%)")
	require.Contains(t, svg, "width='400' height='300'")
}

func TestBuildCard(t *testing.T) {
	card := BuildCard(&models.Post{
		ID: "x", Title: "No image",
		People: []string{"a", "b", "c", "d"},
		Events: []string{"e1", "e2", "e3"},
	})
	require.Equal(t, "Unknown · Somewhere", card.Meta)
	require.True(t, card.Placeholder)
	require.Equal(t, []string{"a", "b", "c"}, card.People)
	require.Equal(t, []string{"e1", "e2"}, card.Events)

	card = BuildCard(samplePosts()[0])
	require.Equal(t, "2024-07-01 · Lisbon", card.Meta)
	require.Equal(t, "https://img/s1600/a.jpg", card.Image)
	require.False(t, card.Placeholder)
}

func TestQuickViewWindow(t *testing.T) {
	posts := samplePosts()
	w := pagination.NewWindow(3, 40)
	qv := BuildQuickView(posts, w)
	require.Len(t, qv.Cards, 3)
	require.True(t, qv.HasMore)
	w.Grow()
	qv = BuildQuickView(posts, w)
	require.Len(t, qv.Cards, 4)
	require.False(t, qv.HasMore)
	require.Equal(t, 43, qv.Limit)
}

func TestTimelineCapsGroups(t *testing.T) {
	var posts []*models.Post
	for i := 0; i < 9; i++ {
		posts = append(posts, &models.Post{ID: string(rune('a' + i)), Date: "2020-01-01"})
	}
	posts = append(posts, &models.Post{ID: "z", Date: "2021-02-02", LocationCity: "Oslo"})

	groups := BuildTimeline(posts)
	require.Len(t, groups, 2)
	require.Equal(t, "2021-02-02", groups[0].Key)
	require.Equal(t, "Oslo", groups[0].Cards[0].City)
	require.Equal(t, 9, groups[1].Total)
	require.Len(t, groups[1].Cards, 8)
	require.Equal(t, "a", groups[1].Cards[0].ID)
}

func TestDateLine(t *testing.T) {
	require.Equal(t, "2020-01-01 - Oslo Norway", DateLine(&models.Post{Date: "2020-01-01", LocationCity: "Oslo", LocationCountry: "Norway"}))
	require.Equal(t, "Norway", DateLine(&models.Post{LocationCountry: "Norway"}))
	require.Equal(t, "2020", DateLine(&models.Post{Date: "2020"}))
	require.Equal(t, "", DateLine(&models.Post{}))
}

func TestBuildDetail(t *testing.T) {
	p := samplePosts()[0]
	p.People = []string{"1", "2", "3", "4", "5", "6"}
	d := BuildDetail(p, 3, true, nil)

	require.Len(t, d.People, 5)
	require.True(t, d.Bookmarked)
	require.Len(t, d.Slides, 2)
	require.Equal(t, 1, d.SlideIndex)
	require.Equal(t, "https://img/s1600/a.jpg", d.Slides[0].ImageURL)
	require.Len(t, d.Blocks, 3)
	require.Equal(t, "<p>Sun</p>\n", d.Blocks[0].HTML)
	require.Empty(t, d.MapBack)

	d = BuildDetail(&models.Post{ID: "t", ContentBlocks: []models.ContentBlock{{Type: models.BlockText, Content: "<b>hi</b> *there*"}}}, 0, false, &MapReturn{})
	require.NotContains(t, d.Blocks[0].HTML, "<b>")
	require.Contains(t, d.Blocks[0].HTML, "<em>there</em>")
	require.Equal(t, "./map.html", d.MapBack)
	require.Nil(t, d.Slide)

	d = BuildDetail(&models.Post{ID: "b", ContentBlocks: []models.ContentBlock{
		{Type: models.BlockText, Content: "  "},
		{Type: models.BlockImage, URL: "https://img/c.jpg"},
	}}, 0, false, nil)
	require.Len(t, d.Blocks, 1)
	require.Equal(t, models.BlockImage, d.Blocks[0].Type)
}

func TestMapReturnLink(t *testing.T) {
	require.Equal(t, "./map.html?lat=1.5&lon=2&zoom=7", ParseMapReturn("1.5", "2", "7").Link())
	require.Equal(t, "./map.html", ParseMapReturn("1.5", "2", "").Link())
	require.Equal(t, "./map.html", ParseMapReturn("x", "2", "7").Link())
	var nilReturn *MapReturn
	require.Equal(t, "./map.html", nilReturn.Link())
}

func TestBuildBookmarks(t *testing.T) {
	var posts []*models.Post
	marks := set{}
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		posts = append(posts, &models.Post{ID: id, Title: id})
		marks[id] = true
	}
	list := BuildBookmarks(posts, marks)
	require.Len(t, list.Items, 15)
	require.Equal(t, "a", list.Items[0].ID)
	require.Empty(t, list.Empty)

	list = BuildBookmarks(posts, set{})
	require.Empty(t, list.Items)
	require.Equal(t, noFavorites, list.Empty)
}
