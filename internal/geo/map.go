package geo

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"valuator/internal/model"
)

const (
	// DefaultZoom shows the whole country
	DefaultZoom = 6
	// MaxZoom is the deepest zoom the tile provider serves
	MaxZoom = 19

	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "&copy; OpenStreetMap contributors"
)

// DefaultCenter is the geographic center of India
var DefaultCenter = model.GeoCoordinate{Latitude: 20.5937, Longitude: 78.9629}

// TileLayer is a slippy-map tile source
type TileLayer struct {
	Template    string `json:"template"`
	MaxZoom     int    `json:"max_zoom"`
	Attribution string `json:"attribution"`
}

// DefaultTileLayer returns the OpenStreetMap layer
func DefaultTileLayer() TileLayer {
	return TileLayer{Template: DefaultTileURL, MaxZoom: MaxZoom, Attribution: DefaultAttribution}
}

// TileURL returns the URL of the tile containing c at the given zoom
func (l TileLayer) TileURL(c model.GeoCoordinate, zoom int) string {
	maxZoom := l.MaxZoom
	if maxZoom <= 0 {
		maxZoom = MaxZoom
	}
	if zoom < 0 {
		zoom = 0
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}

	x, y := tileIndex(c, zoom)
	r := strings.NewReplacer(
		"{s}", "a",
		"{z}", strconv.Itoa(zoom),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	)
	return r.Replace(l.Template)
}

// tileIndex converts a coordinate to web mercator tile numbers
func tileIndex(c model.GeoCoordinate, zoom int) (int, int) {
	n := math.Exp2(float64(zoom))
	lat := math.Max(math.Min(c.Latitude, 85.05112878), -85.05112878)
	latRad := lat * math.Pi / 180

	x := int(math.Floor((c.Longitude + 180) / 360 * n))
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	last := int(n) - 1
	if x > last {
		x = last
	}
	if y > last {
		y = last
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}

// View is a point-in-time copy of the map state
type View struct {
	Center  model.GeoCoordinate  `json:"center"`
	Zoom    int                  `json:"zoom"`
	Marker  *model.GeoCoordinate `json:"marker,omitempty"`
	TileURL string               `json:"tile_url"`
	Layer   TileLayer            `json:"layer"`
}

// Map is an interactive map owned by one form. It carries at most one marker.
// After Remove every operation is a no-op.
type Map struct {
	mu        sync.Mutex
	center    model.GeoCoordinate
	zoom      int
	layer     TileLayer
	marker    *model.GeoCoordinate
	listeners map[int]func(model.GeoCoordinate)
	nextID    int
	removed   bool
}

// NewMap creates a map centered on center at zoom with one tile layer
func NewMap(center model.GeoCoordinate, zoom int, layer TileLayer) *Map {
	if layer.Template == "" {
		layer = DefaultTileLayer()
	}
	return &Map{
		center:    center,
		zoom:      zoom,
		layer:     layer,
		listeners: make(map[int]func(model.GeoCoordinate)),
	}
}

// SetView re-centers the map
func (m *Map) SetView(center model.GeoCoordinate, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.center = center
	m.zoom = zoom
}

// PlaceMarker moves the marker to c, creating it on first use
func (m *Map) PlaceMarker(c model.GeoCoordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	if m.marker == nil {
		m.marker = new(model.GeoCoordinate)
	}
	*m.marker = c
}

// Marker returns the marker position if one was placed
func (m *Map) Marker() (model.GeoCoordinate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marker == nil {
		return model.GeoCoordinate{}, false
	}
	return *m.marker, true
}

// OnClick registers a click listener and returns its unsubscribe function
func (m *Map) OnClick(fn func(model.GeoCoordinate)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Click delivers a click at c to every listener
func (m *Map) Click(c model.GeoCoordinate) {
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return
	}
	fns := make([]func(model.GeoCoordinate), 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Listeners returns the number of registered click listeners
func (m *Map) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// View returns a copy of the current state
func (m *Map) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{
		Center:  m.center,
		Zoom:    m.zoom,
		Layer:   m.layer,
		TileURL: m.layer.TileURL(m.center, m.zoom),
	}
	if m.marker != nil {
		marker := *m.marker
		v.Marker = &marker
	}
	return v
}

// Remove disposes the map, its marker and all listeners
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
	m.marker = nil
	m.listeners = make(map[int]func(model.GeoCoordinate))
}

// Removed reports whether Remove was called
func (m *Map) Removed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}
