package model

// GeoCoordinate is the location the valuation is asked for
type GeoCoordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}
