package geo

import (
	"math"

	"wanna/internal/domain/geo"
)

const earthRadiusMiles = 3958.8

// DistanceMiles calculates the great-circle distance between two points in
// miles using the haversine formula.
func DistanceMiles(a, b geo.Point) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// Centroid computes the spherical mean of a set of points by averaging their
// 3D unit vectors and converting the resultant back to latitude/longitude.
// A plain arithmetic mean of coordinates breaks down near the antimeridian
// and the poles.
func Centroid(points []geo.Point) geo.Point {
	if len(points) == 0 {
		return geo.Point{}
	}

	var x, y, z float64
	for _, p := range points {
		lat := p.Latitude * math.Pi / 180.0
		lon := p.Longitude * math.Pi / 180.0

		x += math.Cos(lat) * math.Cos(lon)
		y += math.Cos(lat) * math.Sin(lon)
		z += math.Sin(lat)
	}

	n := float64(len(points))
	x /= n
	y /= n
	z /= n

	lon := math.Atan2(y, x)
	hyp := math.Sqrt(x*x + y*y)
	lat := math.Atan2(z, hyp)

	return geo.Point{
		Latitude:  lat * 180.0 / math.Pi,
		Longitude: lon * 180.0 / math.Pi,
	}
}
