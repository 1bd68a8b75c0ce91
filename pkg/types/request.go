package types

// DirectionsRequest holds the arguments common to every router's Directions
// operation. Provider-specific parameters are passed through Options, which
// each router package asserts to its own option struct (e.g.
// *osrm.DirectionsOptions); a mismatched type is a validation error.
type DirectionsRequest struct {
	// Locations are the visited waypoints in order, at least two.
	Locations []Coordinate

	// Profile is the mode of travel in the provider's vocabulary
	// (e.g. "driving", "auto", "driving-car", "WALK,TRANSIT").
	Profile string

	// Options carries router-specific parameters, may be nil.
	Options any

	// DryRun logs the request instead of sending it. The operation then
	// returns an empty, non-nil result.
	DryRun bool
}

// MatrixRequest holds the arguments common to every router's Matrix
// operation.
type MatrixRequest struct {
	Locations []Coordinate
	Profile   string

	// Sources and Destinations are indices into Locations restricting the
	// matrix rows and columns. Nil means all locations.
	Sources      []int
	Destinations []int

	Options any
	DryRun  bool
}

// IsochronesRequest holds the arguments common to every router's Isochrones
// operation.
type IsochronesRequest struct {
	// Location is the center of the search.
	Location Coordinate
	Profile  string

	// Intervals to compute isochrones for, in seconds or meters depending
	// on IntervalType.
	Intervals []int

	// IntervalType is IntervalTime or IntervalDistance. Empty defaults to
	// IntervalTime.
	IntervalType string

	Options any
	DryRun  bool
}

// RasterRequest holds the arguments for travel time rasters (OpenTripPlanner).
type RasterRequest struct {
	Location Coordinate
	Profile  string

	// Cutoff is the maximum travel duration in seconds.
	Cutoff int

	Options any
	DryRun  bool
}
