// Package graphhopper provides the Graphhopper router adapter.
package graphhopper

import (
	"context"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/khamaileon/routingpy/internal/convert"
	"github.com/khamaileon/routingpy/internal/geom"
	"github.com/khamaileon/routingpy/pkg/client"
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

const (
	// RouterName is the identifier for this router.
	RouterName = "graphhopper"

	// DefaultBaseURL is the hosted Graphhopper API.
	DefaultBaseURL = "https://graphhopper.com/api/1"
)

// Router implements the Graphhopper API adapter.
type Router struct {
	client *client.Client
	apiKey string
}

// New creates a Graphhopper router from the shared configuration.
// cfg.APIKey is required against the hosted API and sent as the "key"
// query parameter.
func New(cfg router.Config) *Router {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Router{
		client: client.New(RouterName, baseURL, cfg.ClientOptions()...),
		apiKey: cfg.APIKey,
	}
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg), nil
}

// Name returns the router identifier.
func (r *Router) Name() string { return RouterName }

// DirectionsOptions are the Graphhopper-specific directions parameters.
type DirectionsOptions struct {
	// Elevation includes a third coordinate component; the shape is then
	// encoded with three dimensions.
	Elevation bool

	// Instructions includes turn instructions in the raw response.
	Instructions bool

	// Locale of the returned instructions.
	Locale string

	// CalcPoints set to false skips shape calculation entirely.
	CalcPoints *bool

	// Optimize reorders intermediate waypoints for the shortest tour.
	Optimize bool

	// Algorithm selects e.g. "alternative_route" or "round_trip".
	Algorithm string

	// AlternativeRouteMaxPaths caps alternatives with the
	// alternative_route algorithm.
	AlternativeRouteMaxPaths int

	// SnapPreventions, e.g. "motorway", "ferry", "tunnel".
	SnapPreventions []string

	// Curbsides per point: "any", "right" or "left".
	Curbsides []string

	// Headings per point in degrees [0, 360).
	Headings []int

	HeadingPenalty int
}

// Directions requests a route between the given locations.
func (r *Router) Directions(ctx context.Context, req *types.DirectionsRequest) (*types.Directions, error) {
	if len(req.Locations) < 2 {
		return nil, errors.NewValidationError(RouterName, "directions needs at least two locations")
	}
	opts, err := asOptions[DirectionsOptions](req.Options)
	if err != nil {
		return nil, err
	}

	params := r.baseParams()
	for _, loc := range req.Locations {
		params.Add("point", pointParam(loc))
	}
	params.Set("profile", req.Profile)
	params.Set("points_encoded", "true")

	elevation := false
	if opts != nil {
		elevation = opts.Elevation
		params.Set("elevation", convert.Bool(opts.Elevation))
		params.Set("instructions", convert.Bool(opts.Instructions))
		if opts.Locale != "" {
			params.Set("locale", opts.Locale)
		}
		if opts.CalcPoints != nil {
			params.Set("calc_points", convert.Bool(*opts.CalcPoints))
		}
		if opts.Optimize {
			params.Set("optimize", "true")
		}
		if opts.Algorithm != "" {
			params.Set("algorithm", opts.Algorithm)
		}
		if opts.AlternativeRouteMaxPaths > 0 {
			params.Set("alternative_route.max_paths", strconv.Itoa(opts.AlternativeRouteMaxPaths))
		}
		for _, sp := range opts.SnapPreventions {
			params.Add("snap_prevention", sp)
		}
		for _, cs := range opts.Curbsides {
			params.Add("curbside", cs)
		}
		for _, h := range opts.Headings {
			params.Add("heading", strconv.Itoa(h))
		}
		if opts.HeadingPenalty > 0 {
			params.Set("heading_penalty", strconv.Itoa(opts.HeadingPenalty))
		}
	}

	body, err := r.client.Request(ctx, "/route", client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseDirections(body, elevation)
}

func parseDirections(body []byte, elevation bool) (*types.Directions, error) {
	if body == nil {
		return &types.Directions{}, nil
	}

	var resp struct {
		Paths []struct {
			Distance float64 `json:"distance"`
			Time     int64   `json:"time"`
			Points   string  `json:"points"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Directions{Raw: body}
	for _, path := range resp.Paths {
		var geometry []types.Coordinate
		var err error
		if path.Points != "" {
			if elevation {
				geometry, err = geom.DecodePolyline5Elevation(path.Points)
			} else {
				geometry, err = geom.DecodePolyline5(path.Points)
			}
			if err != nil {
				return nil, errors.NewJSONParseError(RouterName, err.Error())
			}
		}
		raw, _ := json.Marshal(path)
		out.Routes = append(out.Routes, types.Direction{
			Geometry: geometry,
			// time is in milliseconds
			Duration: int(path.Time / 1000),
			Distance: int(path.Distance),
			Raw:      raw,
		})
	}
	return out, nil
}

// IsochronesOptions are the Graphhopper-specific isochrone parameters.
type IsochronesOptions struct {
	// Buckets splits the interval into that many nested contours.
	Buckets int

	// ReverseFlow computes the contour of travel towards the location.
	ReverseFlow bool
}

// Isochrones requests reachability contours. Graphhopper takes a single
// limit; buckets divide it into nested contours.
func (r *Router) Isochrones(ctx context.Context, req *types.IsochronesRequest) (*types.Isochrones, error) {
	if len(req.Intervals) != 1 {
		return nil, errors.NewValidationError(RouterName, "graphhopper takes exactly one interval, use buckets for nesting")
	}
	opts, err := asOptions[IsochronesOptions](req.Options)
	if err != nil {
		return nil, err
	}

	intervalType := req.IntervalType
	if intervalType == "" {
		intervalType = types.IntervalTime
	}
	limit := req.Intervals[0]
	buckets := 1
	if opts != nil && opts.Buckets > 0 {
		buckets = opts.Buckets
	}

	params := r.baseParams()
	params.Set("point", pointParam(req.Location))
	params.Set("profile", req.Profile)
	params.Set("buckets", strconv.Itoa(buckets))
	if intervalType == types.IntervalDistance {
		params.Set("distance_limit", strconv.Itoa(limit))
	} else {
		params.Set("time_limit", strconv.Itoa(limit))
	}
	if opts != nil && opts.ReverseFlow {
		params.Set("reverse_flow", "true")
	}

	body, err := r.client.Request(ctx, "/isochrone", client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseIsochrones(body, req.Location, intervalType, limit, buckets)
}

func parseIsochrones(body []byte, center types.Coordinate, intervalType string, limit, buckets int) (*types.Isochrones, error) {
	if body == nil {
		return &types.Isochrones{}, nil
	}

	var resp struct {
		Polygons []struct {
			Properties struct {
				Bucket int `json:"bucket"`
			} `json:"properties"`
			Geometry struct {
				Coordinates [][][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"polygons"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Isochrones{Raw: body}
	for _, poly := range resp.Polygons {
		if len(poly.Geometry.Coordinates) == 0 {
			continue
		}
		ring := make(orb.Ring, 0, len(poly.Geometry.Coordinates[0]))
		for _, c := range poly.Geometry.Coordinates[0] {
			ring = append(ring, orb.Point{c[0], c[1]})
		}
		out.Isochrones = append(out.Isochrones, types.Isochrone{
			Geometry:     ring,
			Center:       center,
			Interval:     limit / buckets * (poly.Properties.Bucket + 1),
			IntervalType: intervalType,
		})
	}
	return out, nil
}

// MatrixOptions are the Graphhopper-specific matrix parameters.
type MatrixOptions struct {
	// OutArrays selects the tables: "times", "distances", "weights".
	// Defaults to times and distances.
	OutArrays []string
}

// Matrix requests a duration/distance table between the given locations.
func (r *Router) Matrix(ctx context.Context, req *types.MatrixRequest) (*types.Matrix, error) {
	if len(req.Locations) < 2 {
		return nil, errors.NewValidationError(RouterName, "matrix needs at least two locations")
	}
	opts, err := asOptions[MatrixOptions](req.Options)
	if err != nil {
		return nil, err
	}

	params := r.baseParams()
	params.Set("profile", req.Profile)

	if len(req.Sources) == 0 && len(req.Destinations) == 0 {
		for _, loc := range req.Locations {
			params.Add("point", pointParam(loc))
		}
	} else {
		for _, loc := range subset(req.Locations, req.Sources) {
			params.Add("from_point", pointParam(loc))
		}
		for _, loc := range subset(req.Locations, req.Destinations) {
			params.Add("to_point", pointParam(loc))
		}
	}

	outArrays := []string{"times", "distances"}
	if opts != nil && len(opts.OutArrays) > 0 {
		outArrays = opts.OutArrays
	}
	for _, oa := range outArrays {
		params.Add("out_array", oa)
	}

	body, err := r.client.Request(ctx, "/matrix", client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseMatrix(body)
}

func parseMatrix(body []byte) (*types.Matrix, error) {
	if body == nil {
		return &types.Matrix{}, nil
	}

	var resp struct {
		Times     [][]float64 `json:"times"`
		Distances [][]float64 `json:"distances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}
	return &types.Matrix{
		Durations: resp.Times,
		Distances: resp.Distances,
		Raw:       body,
	}, nil
}

func (r *Router) baseParams() url.Values {
	params := url.Values{}
	if r.apiKey != "" {
		params.Set("key", r.apiKey)
	}
	return params
}

// pointParam renders a location in Graphhopper's lat,lon order.
func pointParam(loc types.Coordinate) string {
	return convert.Floats([]float64{loc.Lat, loc.Lon}, ",")
}

func subset(locations []types.Coordinate, indices []int) []types.Coordinate {
	if len(indices) == 0 {
		return locations
	}
	picked := make([]types.Coordinate, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(locations) {
			picked = append(picked, locations[idx])
		}
	}
	return picked
}

func asOptions[T any](v any) (*T, error) {
	if v == nil {
		return nil, nil
	}
	opts, ok := v.(*T)
	if !ok {
		return nil, errors.NewValidationError(RouterName, "unexpected options type for this router")
	}
	return opts, nil
}
