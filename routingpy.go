// Package routingpy is a unified client for routing web services. Each
// supported service (OSRM, Valhalla, Graphhopper, Google, HERE,
// openrouteservice, Mapbox, OpenTripPlanner) is exposed through the same
// Router interface: pass a list of coordinates and get back directions,
// isochrones or a duration/distance matrix in a provider-independent
// shape, with the raw response preserved for anything adapter-specific.
//
//	r, err := routingpy.New("osrm", router.Config{})
//	if err != nil {
//		// ...
//	}
//	res, err := r.Directions(ctx, &types.DirectionsRequest{
//		Locations: []types.Coordinate{{Lon: 8.34, Lat: 48.23}, {Lon: 8.58, Lat: 48.65}},
//		Profile:   "driving",
//	})
package routingpy

import (
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
	"github.com/khamaileon/routingpy/routers"
)

// Aliases so callers can stick to the root package for common usage.
type (
	Config = router.Config
	Router = router.Router

	Coordinate = types.Coordinate

	DirectionsRequest = types.DirectionsRequest
	MatrixRequest     = types.MatrixRequest
	IsochronesRequest = types.IsochronesRequest
	RasterRequest     = types.RasterRequest

	Direction  = types.Direction
	Directions = types.Directions
	Isochrone  = types.Isochrone
	Isochrones = types.Isochrones
	Matrix     = types.Matrix
	Raster     = types.Raster
)

// ErrNotSupported is returned by routers that do not offer the requested
// operation; test with errors.Is.
var ErrNotSupported = errors.ErrNotSupported

// New creates a router by name or alias, e.g. "osrm", "valhalla",
// "graphhopper", "google", "heremaps", "ors", "mapbox_osrm",
// "mapbox_valhalla" or "otp".
func New(name string, cfg router.Config) (router.Router, error) {
	return routers.New(name, cfg)
}

// List returns the canonical names of all registered routers.
func List() []string {
	return routers.List()
}

// Register adds a custom router factory under the given name with
// optional aliases.
func Register(name string, factory router.Factory, aliases ...string) {
	routers.Register(name, factory, aliases...)
}
