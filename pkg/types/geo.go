// Package types defines the unified request and result objects shared by all
// router adapters. Every provider, whatever its wire format, parses into
// these types; the raw provider payload is always preserved alongside.
package types

import (
	"github.com/paulmach/orb"
)

// Coordinate is a single WGS84 point in lon/lat order.
// Ele carries elevation in meters for providers that return 3D geometries
// (e.g. Graphhopper with elevation enabled); it is zero otherwise.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	Ele float64 `json:"ele,omitempty"`
}

// Point converts the coordinate to an orb.Point.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint builds a Coordinate from an orb.Point.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lon: p[0], Lat: p[1]}
}

// Interval types shared by isochrone-capable providers.
const (
	IntervalTime     = "time"
	IntervalDistance = "distance"
)
