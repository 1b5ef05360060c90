package geo

import (
	"context"
	"errors"
	"sync"

	"valuator/internal/model"
)

// ErrPickerClosed is returned for work that finished after Close
var ErrPickerClosed = errors.New("picker is closed")

// Picker owns a map and the single coordinate picked on it, either by a
// click or by the device position. The latest write wins.
type Picker struct {
	mu          sync.Mutex
	m           *Map
	locator     Locator
	locateZoom  int
	coord       *model.GeoCoordinate
	unsubscribe func()
	closed      bool
}

// NewPicker mounts a map at the default view
func NewPicker(layer TileLayer, locator Locator, locateZoom int) *Picker {
	p := &Picker{
		m:          NewMap(DefaultCenter, DefaultZoom, layer),
		locator:    locator,
		locateZoom: locateZoom,
	}
	p.unsubscribe = p.m.OnClick(func(c model.GeoCoordinate) {
		p.set(c, false)
	})
	return p
}

// OnMapClick handles a click on the map
func (p *Picker) OnMapClick(lat, lng float64) {
	p.m.Click(model.GeoCoordinate{Latitude: lat, Longitude: lng})
}

// UseDeviceLocation asks the picker's locator for the current position and,
// on success, picks it and re-centers the map. On failure the coordinate is
// left unchanged.
func (p *Picker) UseDeviceLocation(ctx context.Context) (model.GeoCoordinate, error) {
	return p.LocateWith(ctx, p.locator)
}

// LocateWith is UseDeviceLocation with an explicit locator
func (p *Picker) LocateWith(ctx context.Context, locator Locator) (model.GeoCoordinate, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return model.GeoCoordinate{}, ErrPickerClosed
	}
	if locator == nil {
		return model.GeoCoordinate{}, ErrUnsupported
	}

	c, err := locator.Locate(ctx)
	if err != nil {
		return model.GeoCoordinate{}, err
	}
	if !p.set(c, true) {
		return model.GeoCoordinate{}, ErrPickerClosed
	}
	return c, nil
}

func (p *Picker) set(c model.GeoCoordinate, recenter bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.coord = &c
	if recenter {
		p.m.SetView(c, p.locateZoom)
	}
	p.m.PlaceMarker(c)
	return true
}

// Coordinate returns the picked coordinate, if any
func (p *Picker) Coordinate() (model.GeoCoordinate, bool) {
	if p == nil {
		return model.GeoCoordinate{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.coord == nil {
		return model.GeoCoordinate{}, false
	}
	return *p.coord, true
}

// View returns the map state
func (p *Picker) View() View {
	return p.m.View()
}

// Close detaches the click listener and removes the map
func (p *Picker) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	unsubscribe := p.unsubscribe
	p.mu.Unlock()

	unsubscribe()
	p.m.Remove()
}
