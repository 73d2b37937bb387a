package post

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	appcfg "github.com/mx-space/memory-explorer/internal/config"
	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `[
  {"url": "p-rome-may", "title": "Rome in May", "date": "2020-05-01", "location_city": "Rome", "location_country": "Italy", "people": ["Ana", "Ben"], "events": ["Holiday"]},
  {"url": "p-undated-1", "title": "Undated first"},
  {"url": "p-rome-2019", "title": "Rome again", "date": "2019-01-01", "location_city": "Rome", "people": ["Ana"], "events": []},
  {"url": "p-undated-2", "title": "Undated second", "people": ["Cleo", "Ana"]},
  {"url": "p-oslo", "title": "Oslo", "date": "2020-09-01", "location_city": "Oslo", "location_country": "Norway", "people": ["Ben"], "events": ["Conference", "Holiday"]},
  {"url": "p-oslo", "title": "Duplicate"},
  {"title": "no identity"}
]`

func ids(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestDecodeSortsByDateDescending(t *testing.T) {
	posts, err := Decode([]byte(sampleDocument))
	require.NoError(t, err)
	require.Equal(t, []string{"p-oslo", "p-rome-may", "p-rome-2019", "p-undated-1", "p-undated-2"}, ids(posts))
	require.Equal(t, "Oslo", posts[0].Title)
}

func TestDecodeRejectsNonArray(t *testing.T) {
	_, err := Decode([]byte(`{"posts": []}`))
	require.Error(t, err)
}

func TestStatsAndFacets(t *testing.T) {
	posts, err := Decode([]byte(sampleDocument))
	require.NoError(t, err)

	require.Equal(t, Stats{Posts: 5, People: 3, Cities: 2}, ComputeStats(posts))

	f := ComputeFacets(posts)
	require.Equal(t, []string{"2020", "2019"}, f.Years)
	require.Equal(t, []string{"Ana", "Ben", "Cleo"}, f.People)
	require.Equal(t, []string{"Oslo", "Rome"}, f.Cities)
	require.Equal(t, []string{"Conference", "Holiday"}, f.Events)
}

func TestComputeFacetsEmpty(t *testing.T) {
	f := ComputeFacets(nil)
	require.Empty(t, f.Years)
	require.NotNil(t, f.People)
}

type failingSource struct{ name string }

func (s failingSource) Name() string { return s.name }
func (s failingSource) Fetch(context.Context) ([]byte, error) { return nil, errors.New("unreachable") }

func TestLoadUsesFirstSuccessfulSource(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))
	require.NoError(t, os.WriteFile(good, []byte(sampleDocument), 0o600))

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	store := NewStore([]Source{
		failingSource{name: "down"},
		FileSource{Path: filepath.Join(dir, "missing.json")},
		FileSource{Path: bad},
		FileSource{Path: good},
		HTTPSource{URL: srv.URL},
	})
	require.NoError(t, store.Load(context.Background()))
	require.Len(t, store.Posts(), 5)
	require.Zero(t, calls)

	from, _ := store.Loaded()
	require.Equal(t, good, from)

	p, ok := store.Lookup("p-rome-may")
	require.True(t, ok)
	require.Equal(t, "Rome in May", p.Title)
}

func TestLoadFailsWithDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := NewStore([]Source{HTTPSource{URL: srv.URL}, failingSource{name: "down"}})
	err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrDataUnavailable)
	require.Empty(t, store.Posts())
	require.Equal(t, Stats{}, store.Stats())
}

func TestLoadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	posts, err := Decode([]byte(sampleDocument))
	require.NoError(t, err)

	store := NewStore([]Source{failingSource{name: "down"}})
	store.Replace(posts)
	require.Error(t, store.Load(context.Background()))
	require.Len(t, store.Posts(), 5)
}

func TestBuildSources(t *testing.T) {
	sources, err := BuildSources(appcfg.DataConfig{
		Sources: []string{"./posts_full.json", "https://cdn.example.com/posts.json", "s3://memories/posts_full.json"},
	})
	require.NoError(t, err)
	require.Len(t, sources, 3)
	require.IsType(t, FileSource{}, sources[0])
	require.IsType(t, HTTPSource{}, sources[1])
	require.Equal(t, "s3://memories/posts_full.json", sources[2].Name())

	sources, err = BuildSources(appcfg.DataConfig{
		BaseURL: "https://example.com/app",
		Sources: []string{"./posts_full.json", "../posts_full.json", "/posts_full.json"},
	})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/app/posts_full.json", sources[0].Name())
	require.Equal(t, "https://example.com/posts_full.json", sources[1].Name())
	require.Equal(t, "https://example.com/posts_full.json", sources[2].Name())

	_, err = BuildSources(appcfg.DataConfig{Sources: []string{"s3://bucket-only"}})
	require.Error(t, err)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	posts, err := Decode([]byte(sampleDocument))
	require.NoError(t, err)
	store := NewStore(nil)
	store.Replace(posts)

	r := gin.New()
	NewHandler(store).RegisterRoutes(r.Group("/api/v2"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/posts?page=1&size=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var paged struct {
		Data       []models.Post `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paged))
	require.Len(t, paged.Data, 2)
	require.Equal(t, 5, paged.Pagination.Total)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/posts/lookup?id=missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/stats", nil))
	require.JSONEq(t, `{"posts":5,"people":3,"cities":2}`, w.Body.String())
}
