package explorer

import (
	"strconv"

	"github.com/mx-space/memory-explorer/internal/models"
	"github.com/mx-space/memory-explorer/internal/modules/filter"
	"github.com/mx-space/memory-explorer/internal/pkg/pagination"
)

// Screen is the page a session is looking at.
type Screen string

const (
	ScreenHome   Screen = "home"
	ScreenDetail Screen = "detail"
)

// MapReturn remembers the map viewport a session was opened from. Missing
// or unparsable query values stay nil.
type MapReturn struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	Zoom *int     `json:"zoom,omitempty"`
}

// ParseMapReturn reads the from=map query values.
func ParseMapReturn(lat, lon, zoom string) *MapReturn {
	mr := &MapReturn{}
	if v, err := strconv.ParseFloat(lat, 64); err == nil {
		mr.Lat = &v
	}
	if v, err := strconv.ParseFloat(lon, 64); err == nil {
		mr.Lon = &v
	}
	if v, err := strconv.Atoi(zoom); err == nil {
		mr.Zoom = &v
	}
	return mr
}

// Link is the href of the back-to-map button.
func (m *MapReturn) Link() string {
	if m == nil || m.Lat == nil || m.Lon == nil || m.Zoom == nil || *m.Lat == 0 || *m.Lon == 0 || *m.Zoom == 0 {
		return "./map.html"
	}
	return "./map.html?lat=" + strconv.FormatFloat(*m.Lat, 'f', -1, 64) +
		"&lon=" + strconv.FormatFloat(*m.Lon, 'f', -1, 64) +
		"&zoom=" + strconv.Itoa(*m.Zoom)
}

// state is everything a session controller owns. It is guarded by the
// controller mutex.
type state struct {
	screen        Screen
	search        string
	manual        filter.Manual
	favoritesOnly bool
	custom        *models.CustomFilter
	// stashed holds the manual controls replaced by the custom filter.
	stashed   *filter.Manual
	aiResults []string
	aiQuery   string
	aiLoading bool
	aiGen     uint64
	timeline  bool
	window    pagination.Window

	mode       filter.Mode
	filtered   []*models.Post
	active     *models.Post
	slideIndex int
	mapReturn  *MapReturn

	notice     string
	customMeta string
}

func newState(pageSize, pageStep int) state {
	return state{
		screen: ScreenHome,
		manual: filter.DefaultManual(),
		window: pagination.NewWindow(pageSize, pageStep),
		mode:   filter.ModeManual,
	}
}

func (s *state) input(aiConstraints bool) filter.Input {
	return filter.Input{
		Search:        s.search,
		Manual:        s.manual,
		FavoritesOnly: s.favoritesOnly,
		Custom:        s.custom,
		AIResults:     s.aiResults,
		AIConstraints: aiConstraints,
	}
}

// clearCustom drops the selected custom filter and brings back the manual
// controls it replaced.
func (s *state) clearCustom() {
	s.custom = nil
	if s.stashed != nil {
		s.manual = *s.stashed
		s.stashed = nil
	}
}

func (s *state) contains(p *models.Post) bool {
	if p == nil {
		return false
	}
	for _, f := range s.filtered {
		if f.ID == p.ID {
			return true
		}
	}
	return false
}
