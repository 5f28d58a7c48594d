// Package geo is the narrow geospatial capability the post lifecycle
// depends on. The store behind it may be PostGIS, a plain bounding-box
// scan, or anything else that can answer "open posts near here".
package geo

import (
	"context"
	"time"

	"github.com/linkup-app/linkup/internal/models"
)

type Point struct {
	Lat float64
	Lng float64
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Filters narrows a nearby query. Zero values mean "no filter".
type Filters struct {
	Category string
	From     time.Time
	To       time.Time
}

// Index answers radius queries over posts. Implementations must only
// return posts that are open and whose event time is in the future.
type Index interface {
	Nearby(ctx context.Context, center Point, radiusKm float64, f Filters) ([]models.Post, error)
}

// Box is a lat/lng bounding box approximating a radius around a point.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// degPerKm approximates one kilometre in degrees of latitude. Fine at
// meetup scale; longitude compression toward the poles only makes the
// box slightly generous.
const degPerKm = 1.0 / 111.0

// BoundingBox converts a radius query into a box for stores without
// native geospatial indexing.
func BoundingBox(center Point, radiusKm float64) Box {
	delta := radiusKm * degPerKm
	return Box{
		MinLat: center.Lat - delta,
		MaxLat: center.Lat + delta,
		MinLng: center.Lng - delta,
		MaxLng: center.Lng + delta,
	}
}
