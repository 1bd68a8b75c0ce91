package types

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
)

// Direction is a single route between the requested waypoints.
type Direction struct {
	// Geometry is the route shape in lon/lat order.
	Geometry []Coordinate `json:"geometry"`

	// Duration is the travel time in seconds.
	Duration int `json:"duration"`

	// Distance is the travel distance in meters.
	Distance int `json:"distance"`

	// Departure and Arrival are set only by schedule-aware providers
	// (e.g. OpenTripPlanner transit itineraries).
	Departure time.Time `json:"departure"`
	Arrival   time.Time `json:"arrival"`

	// Raw is the untouched provider payload for this route.
	Raw json.RawMessage `json:"-"`
}

// Directions is the set of routes returned for one request. Providers that
// return a single route yield a one-element set.
type Directions struct {
	Routes []Direction `json:"routes"`

	// Raw is the untouched provider response.
	Raw json.RawMessage `json:"-"`
}

// First returns the primary route, or nil when no route was found.
func (d *Directions) First() *Direction {
	if d == nil || len(d.Routes) == 0 {
		return nil
	}
	return &d.Routes[0]
}

// Isochrone is a single reachability contour around a center point.
type Isochrone struct {
	// Geometry is the contour ring in lon/lat order.
	Geometry orb.Ring `json:"geometry"`

	// Center is the requested origin, when reported by the provider.
	Center Coordinate `json:"center"`

	// Interval is the contour value in seconds or meters.
	Interval int `json:"interval"`

	// IntervalType is IntervalTime or IntervalDistance.
	IntervalType string `json:"interval_type"`
}

// Isochrones is the set of contours returned for one request.
type Isochrones struct {
	Isochrones []Isochrone     `json:"isochrones"`
	Raw        json.RawMessage `json:"-"`
}

// Matrix holds duration and/or distance tables between sources and
// destinations. A provider may fill only one of the two tables depending on
// the requested annotations; missing cells are NaN-free nil rows.
type Matrix struct {
	// Durations[i][j] is the travel time in seconds from source i to
	// destination j.
	Durations [][]float64 `json:"durations,omitempty"`

	// Distances[i][j] is the travel distance in meters.
	Distances [][]float64 `json:"distances,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Raster is a travel time surface image (OpenTripPlanner).
type Raster struct {
	// Image is the raw raster bytes as returned by the provider.
	Image []byte `json:"-"`

	// MaxTravelTime is the cutoff used to build the surface, in seconds.
	MaxTravelTime int `json:"max_travel_time"`
}
