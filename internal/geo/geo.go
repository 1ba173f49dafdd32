// Package geo computes user-to-place distances for ranking and display.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusMeters is the mean Earth radius used by the Haversine formula
const earthRadiusMeters = 6371000

// Unknown is the sentinel distance for places without coordinates; it
// sorts after every real distance and is never shown to the user.
const Unknown = 999999

// Point is a WGS84 coordinate pair
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the great-circle distance in meters between two points
func Distance(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Pow(math.Sin(dLng/2), 2)

	return earthRadiusMeters * 2 * math.Asin(math.Sqrt(h))
}

// DistanceTo returns the distance from user to a place's coordinates, or
// Unknown when either coordinate is missing.
func DistanceTo(user Point, lat, lng *float64) float64 {
	if lat == nil || lng == nil {
		return Unknown
	}
	return Distance(user, Point{Lat: *lat, Lng: *lng})
}

// FormatDistance renders meters for display: "500 m" below a kilometer,
// "3.0 km" from there on. Unknown distances render empty.
func FormatDistance(meters float64) string {
	if meters >= Unknown {
		return ""
	}
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
