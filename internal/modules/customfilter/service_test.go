package customfilter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/pkg/kv"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(t *testing.T) (*Service, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	tick := time.UnixMilli(1_000)
	svc := NewService(store, WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}))
	return svc, store
}

func TestSaveValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, models.CustomFilter{Name: "  ", People: []string{"Ana"}})
	require.ErrorIs(t, err, ErrNameRequired)
	require.Equal(t, "Please give your custom filter a name.", Notice(err))

	_, err = svc.Save(ctx, models.CustomFilter{Name: "Empty", People: []string{" "}})
	require.ErrorIs(t, err, ErrNoCriteria)
}

func TestSaveUpsertsByNameCaseInsensitively(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, models.CustomFilter{Name: "Family", People: []string{"Ana", "Ana", "Ben"}})
	require.NoError(t, err)
	_, err = svc.Save(ctx, models.CustomFilter{Name: "Trips", Cities: []string{"Rome"}})
	require.NoError(t, err)
	updated, err := svc.Save(ctx, models.CustomFilter{Name: "FAMILY", Years: []string{"2020"}})
	require.NoError(t, err)
	require.Equal(t, "FAMILY", updated.Name)

	filters, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, filters, 2)
	require.Equal(t, "FAMILY", filters[0].Name, "newest first")
	require.Equal(t, []string{"2020"}, filters[0].Years)
	require.Empty(t, filters[0].People)
	require.Equal(t, "Trips", filters[1].Name)

	got, err := svc.Get(ctx, "family")
	require.NoError(t, err)
	require.Equal(t, "0 people • 0 events • 0 cities • 1 years", got.Describe())
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, models.CustomFilter{Name: "Trips", Cities: []string{"Rome"}})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "trips"))
	require.ErrorIs(t, svc.Delete(ctx, "trips"), ErrNotFound)

	_, err = svc.Get(ctx, "Trips")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCorruptStorageIsEmpty(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, kv.KeyCustomFilters, `{"oops"`))
	core, logs := observer.New(zapcore.WarnLevel)
	WithLogger(zap.New(core))(svc)

	filters, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, filters)
	require.Equal(t, 1, logs.FilterField(zap.String("key", kv.KeyCustomFilters)).Len())

	_, err = svc.Save(ctx, models.CustomFilter{Name: "Fresh", Events: []string{"Birthday"}})
	require.NoError(t, err)
	filters, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, filters, 1)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v2"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v2/custom-filters", strings.NewReader(`{"name":"Trips","cities":["Rome"]}`)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"summary":"0 people • 0 events • 1 cities • 0 years"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v2/custom-filters", strings.NewReader(`{"name":""}`)))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/custom-filters/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/custom-filters/trips", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
}
