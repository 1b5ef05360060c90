package geo

import (
	"context"
	"errors"
	"time"

	"googlemaps.github.io/maps"

	"valuator/internal/model"
)

var ErrNoGeoInfoFound = errors.New("no geo information found")

// Address is the city and locality suggested for a coordinate
type Address struct {
	City      string `json:"city"`
	Locality  string `json:"locality"`
	Formatted string `json:"formatted_address"`
}

// Resolver turns a coordinate into an address suggestion
type Resolver interface {
	Resolve(ctx context.Context, c model.GeoCoordinate) (Address, error)
}

// GeocodingResolver reverse geocodes through the Google Geocoding API
type GeocodingResolver struct {
	client *maps.Client
}

func NewGeocodingResolver(client *maps.Client) *GeocodingResolver {
	return &GeocodingResolver{
		client: client,
	}
}

func (g *GeocodingResolver) Resolve(ctx context.Context, c model.GeoCoordinate) (Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	geos, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{
			Lat: c.Latitude,
			Lng: c.Longitude,
		},
		Language: "en",
	})
	if err != nil {
		return Address{}, err
	}

	if len(geos) == 0 {
		return Address{}, ErrNoGeoInfoFound
	}

	byType := make(map[string]string)
	for _, a := range geos[0].AddressComponents {
		for _, t := range a.Types {
			if _, ok := byType[t]; !ok {
				byType[t] = a.LongName
			}
		}
	}

	var addr Address
	addr.City = firstOf(byType, "locality", "administrative_area_level_2")
	addr.Locality = firstOf(byType, "sublocality_level_1", "sublocality", "neighborhood")
	addr.Formatted = geos[0].FormattedAddress

	if addr.City == "" && addr.Locality == "" {
		return Address{}, ErrNoGeoInfoFound
	}
	return addr, nil
}

func firstOf(byType map[string]string, types ...string) string {
	for _, t := range types {
		if v := byType[t]; v != "" {
			return v
		}
	}
	return ""
}
