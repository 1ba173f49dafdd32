package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownPair(t *testing.T) {
	// Zócalo to Ángel de la Independencia, roughly 2.4 km
	zocalo := Point{Lat: 19.4326, Lng: -99.1332}
	angel := Point{Lat: 19.4270, Lng: -99.1677}

	d := Distance(zocalo, angel)
	if d < 3000 && d > 2000 {
		return
	}
	t.Errorf("Distance = %.0f m, expected between 2000 and 3000", d)
}

func TestDistanceZero(t *testing.T) {
	p := Point{Lat: 19.43, Lng: -99.13}
	if d := Distance(p, p); d > 0.001 {
		t.Errorf("Distance to self = %f, want ~0", d)
	}
}

func TestDistanceToMissingCoordinates(t *testing.T) {
	user := Point{Lat: 19.43, Lng: -99.13}
	lat := 19.44
	if d := DistanceTo(user, &lat, nil); d != Unknown {
		t.Errorf("missing lng: got %f, want Unknown", d)
	}
	if d := DistanceTo(user, nil, nil); d != Unknown {
		t.Errorf("missing both: got %f, want Unknown", d)
	}
	lng := -99.14
	if d := DistanceTo(user, &lat, &lng); d >= Unknown {
		t.Errorf("complete coordinates must yield a real distance, got %f", d)
	}
}

func TestFormatDistance(t *testing.T) {
	cases := []struct {
		meters float64
		want   string
	}{
		{500, "500 m"},
		{999, "999 m"},
		{1000, "1.0 km"},
		{3000, "3.0 km"},
		{12345, "12.3 km"},
		{Unknown, ""},
		{math.MaxFloat64, ""},
	}
	for _, c := range cases {
		if got := FormatDistance(c.meters); got != c.want {
			t.Errorf("FormatDistance(%.0f) = %q, want %q", c.meters, got, c.want)
		}
	}
}
