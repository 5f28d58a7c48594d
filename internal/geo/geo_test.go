package geo

import (
	"math"
	"testing"
)

func TestPointValid(t *testing.T) {
	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"origin", Point{0, 0}, true},
		{"poles", Point{90, 180}, true},
		{"negative extremes", Point{-90, -180}, true},
		{"lat out of range", Point{90.1, 0}, false},
		{"lng out of range", Point{0, -180.1}, false},
	}
	for _, tc := range cases {
		if got := tc.p.Valid(); got != tc.want {
			t.Errorf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	center := Point{Lat: 12.97, Lng: 77.59}
	box := BoundingBox(center, 11.1)

	// 11.1km is 0.1 degrees at the equator approximation.
	wantDelta := 0.1
	if math.Abs((box.MaxLat-center.Lat)-wantDelta) > 1e-9 {
		t.Errorf("lat delta = %v, want %v", box.MaxLat-center.Lat, wantDelta)
	}
	if math.Abs((center.Lng-box.MinLng)-wantDelta) > 1e-9 {
		t.Errorf("lng delta = %v, want %v", center.Lng-box.MinLng, wantDelta)
	}
	if box.MinLat >= box.MaxLat || box.MinLng >= box.MaxLng {
		t.Error("degenerate box")
	}
}

func TestBoundingBoxContainsCenter(t *testing.T) {
	center := Point{Lat: -33.87, Lng: 151.21}
	box := BoundingBox(center, 5)
	if center.Lat < box.MinLat || center.Lat > box.MaxLat ||
		center.Lng < box.MinLng || center.Lng > box.MaxLng {
		t.Error("center falls outside its own bounding box")
	}
}
