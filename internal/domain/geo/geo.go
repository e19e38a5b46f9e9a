package geo

import "context"

// Point is a geographic coordinate pair in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Index is a geospatial member index. One logical key holds all active
// intents; members are intent ids.
type Index interface {
	// Add registers a member at the given coordinates.
	Add(ctx context.Context, key string, lon, lat float64, member string) error

	// Radius returns members within radiusMiles of the given coordinates,
	// ascending by distance.
	Radius(ctx context.Context, key string, lon, lat, radiusMiles float64) ([]string, error)

	// Remove deletes a member from the index. Removing an absent member is
	// not an error.
	Remove(ctx context.Context, key string, member string) error
}

// Geocoder resolves coordinates into a human-readable place name.
type Geocoder interface {
	// ReverseGeocode returns a name for the location, or an empty string if
	// none is known.
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}
