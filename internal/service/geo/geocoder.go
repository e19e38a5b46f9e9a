package geo

import (
	"context"
	"fmt"
)

// NewGeocoderService creates a new instance of a geocoder service.
func NewGeocoderService() *defaultGeocoderService {
	return &defaultGeocoderService{}
}

// defaultGeocoderService is a basic implementation of the geo.Geocoder
// interface.
type defaultGeocoderService struct{}

// ReverseGeocode provides a coordinate-formatted placeholder name. A real
// deployment swaps in a geocoding API client (Google Maps, OpenStreetMap).
func (g *defaultGeocoderService) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	return fmt.Sprintf("near %.4f, %.4f", lat, lon), nil
}
