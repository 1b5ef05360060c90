package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuator/internal/model"
)

func TestPicker_MapClickSetsCoordinateAndMarker(t *testing.T) {
	p := NewPicker(DefaultTileLayer(), nil, 14)
	defer p.Close()

	_, ok := p.Coordinate()
	assert.False(t, ok)

	p.OnMapClick(12.97, 77.59)
	p.OnMapClick(19.07, 72.87)

	got, ok := p.Coordinate()
	require.True(t, ok)
	assert.Equal(t, model.GeoCoordinate{Latitude: 19.07, Longitude: 72.87}, got)

	view := p.View()
	require.NotNil(t, view.Marker)
	assert.Equal(t, got, *view.Marker)
	assert.Equal(t, DefaultCenter, view.Center)
	assert.Equal(t, DefaultZoom, view.Zoom)
}

func TestPicker_UseDeviceLocation(t *testing.T) {
	here := model.GeoCoordinate{Latitude: 28.61, Longitude: 77.20}
	p := NewPicker(DefaultTileLayer(), ReportedLocator{Position: &here}, 15)
	defer p.Close()

	got, err := p.UseDeviceLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, here, got)

	view := p.View()
	assert.Equal(t, here, view.Center)
	assert.Equal(t, 15, view.Zoom)
	require.NotNil(t, view.Marker)
	assert.Equal(t, here, *view.Marker)
}

func TestPicker_DeviceLocationFailureKeepsCoordinate(t *testing.T) {
	p := NewPicker(DefaultTileLayer(), ReportedLocator{Code: CodePermissionDenied, Message: "User denied Geolocation"}, 14)
	defer p.Close()

	p.OnMapClick(1, 2)

	_, err := p.UseDeviceLocation(context.Background())
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.EqualError(t, err, "permission denied: User denied Geolocation")

	got, ok := p.Coordinate()
	require.True(t, ok)
	assert.Equal(t, model.GeoCoordinate{Latitude: 1, Longitude: 2}, got)
}

func TestPicker_NoLocator(t *testing.T) {
	p := NewPicker(DefaultTileLayer(), nil, 14)
	defer p.Close()

	_, err := p.UseDeviceLocation(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPicker_ResultAfterCloseIsDropped(t *testing.T) {
	release := make(chan struct{})
	locator := LocatorFunc(func(ctx context.Context) (model.GeoCoordinate, error) {
		<-release
		return model.GeoCoordinate{Latitude: 9, Longitude: 9}, nil
	})
	p := NewPicker(DefaultTileLayer(), locator, 14)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.UseDeviceLocation(context.Background())
		errCh <- err
	}()

	p.Close()
	close(release)

	assert.ErrorIs(t, <-errCh, ErrPickerClosed)
	_, ok := p.Coordinate()
	assert.False(t, ok)

	p.OnMapClick(1, 1)
	_, ok = p.Coordinate()
	assert.False(t, ok)
}

func TestReportedLocator(t *testing.T) {
	tests := []struct {
		name    string
		l       ReportedLocator
		wantErr error
	}{
		{"Denied", ReportedLocator{Code: CodePermissionDenied}, ErrPermissionDenied},
		{"Unavailable", ReportedLocator{Code: CodePositionUnavailable}, ErrUnavailable},
		{"Timeout", ReportedLocator{Code: CodeTimeout}, ErrTimeout},
		{"Nothing reported", ReportedLocator{}, ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.l.Locate(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
