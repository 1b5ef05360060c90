package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"valuator/internal/model"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("timeout expired")
	ErrUnsupported      = errors.New("geolocation not supported")
)

// Browser geolocation error codes
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

const defaultLocateTimeout = 10 * time.Second

// Locator yields the device's current position
type Locator interface {
	Locate(ctx context.Context) (model.GeoCoordinate, error)
}

// LocatorFunc adapts a function to Locator
type LocatorFunc func(ctx context.Context) (model.GeoCoordinate, error)

func (f LocatorFunc) Locate(ctx context.Context) (model.GeoCoordinate, error) {
	return f(ctx)
}

// NewClient creates a Google Maps client
func NewClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google maps api key is not configured")
	}
	return maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
}

// GoogleLocator locates the host through the Google Geolocation API
type GoogleLocator struct {
	client  *maps.Client
	timeout time.Duration
}

func NewGoogleLocator(client *maps.Client) *GoogleLocator {
	return &GoogleLocator{
		client:  client,
		timeout: defaultLocateTimeout,
	}
}

func (g *GoogleLocator) Locate(ctx context.Context) (model.GeoCoordinate, error) {
	if g == nil || g.client == nil {
		return model.GeoCoordinate{}, ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.GeoCoordinate{}, ErrTimeout
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return model.GeoCoordinate{}, ctx.Err()
		}
		return model.GeoCoordinate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return model.GeoCoordinate{
		Latitude:  result.Location.Lat,
		Longitude: result.Location.Lng,
	}, nil
}

// ReportedLocator replays a position or failure reported by the browser
type ReportedLocator struct {
	Position *model.GeoCoordinate `json:"position,omitempty"`
	Code     int                  `json:"code,omitempty"`
	Message  string               `json:"message,omitempty"`
}

func (r ReportedLocator) Locate(ctx context.Context) (model.GeoCoordinate, error) {
	if err := ctx.Err(); err != nil {
		return model.GeoCoordinate{}, err
	}
	if r.Position != nil {
		return *r.Position, nil
	}

	var err error
	switch r.Code {
	case CodePermissionDenied:
		err = ErrPermissionDenied
	case CodePositionUnavailable:
		err = ErrUnavailable
	case CodeTimeout:
		err = ErrTimeout
	default:
		return model.GeoCoordinate{}, ErrUnsupported
	}
	if r.Message != "" {
		return model.GeoCoordinate{}, fmt.Errorf("%w: %s", err, r.Message)
	}
	return model.GeoCoordinate{}, err
}
