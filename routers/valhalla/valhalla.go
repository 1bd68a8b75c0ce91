// Package valhalla provides the Valhalla router adapter. Valhalla takes all
// parameters as a JSON document, including for GET-style queries.
package valhalla

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/khamaileon/routingpy/internal/geom"
	"github.com/khamaileon/routingpy/pkg/client"
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

const (
	// RouterName is the identifier for this router.
	RouterName = "valhalla"

	// DefaultBaseURL is the public FOSSGIS Valhalla instance.
	DefaultBaseURL = "https://valhalla1.openstreetmap.de"
)

// Date/time types understood by Valhalla.
const (
	DateTimeCurrent  = 0
	DateTimeDepartAt = 1
	DateTimeArriveBy = 2
)

// Router implements the Valhalla API adapter.
type Router struct {
	name   string
	client *client.Client

	// query is appended to every request URL; hosted flavors use it for
	// token auth (see the mapboxvalhalla package).
	query url.Values
}

// New creates a Valhalla router from the shared configuration.
func New(cfg router.Config) *Router {
	return NewHosted(RouterName, DefaultBaseURL, nil, cfg)
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg), nil
}

// NewHosted builds a Valhalla router for a hosted flavor with its own name,
// endpoint and auth query parameters (see the mapboxvalhalla package).
func NewHosted(name, defaultBaseURL string, query url.Values, cfg router.Config) *Router {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Router{
		name:   name,
		client: client.New(name, baseURL, cfg.ClientOptions()...),
		query:  query,
	}
}

// Name returns the router identifier.
func (r *Router) Name() string { return r.name }

// Waypoint is a routed location with Valhalla-specific attributes.
type Waypoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Type is "break" (default) or "through".
	Type string `json:"type,omitempty"`

	Heading          int `json:"heading,omitempty"`
	HeadingTolerance int `json:"heading_tolerance,omitempty"`

	// MinimumReachability is the minimum number of nodes a candidate edge
	// must reach to be considered snappable.
	MinimumReachability int `json:"minimum_reachability,omitempty"`

	// Radius is the snapping search radius in meters.
	Radius int `json:"radius,omitempty"`

	RankCandidates bool `json:"rank_candidates,omitempty"`
}

// DateTime pins the route in time.
type DateTime struct {
	// Type is DateTimeCurrent, DateTimeDepartAt or DateTimeArriveBy.
	Type int `json:"type"`

	// Value is the local datetime, e.g. "2021-03-03T08:06".
	Value string `json:"value"`
}

// DirectionsOptions are the Valhalla-specific directions parameters.
type DirectionsOptions struct {
	// Waypoints replaces the plain request locations when attributes like
	// type or heading are needed per stop.
	Waypoints []Waypoint

	// CostingOptions are passed through under the profile's key, e.g.
	// {"use_ferry": 0}.
	CostingOptions map[string]any

	// Units is "kilometers" (default) or "miles".
	Units string

	// Language of the returned instructions.
	Language string

	// DirectionsType is "none", "maneuvers" or "instructions".
	DirectionsType string

	// AvoidLocations the route must not pass.
	AvoidLocations []types.Coordinate

	DateTime *DateTime

	// ID is echoed back in the response.
	ID string
}

type directionsQuery struct {
	Locations         []Waypoint       `json:"locations"`
	Costing           string           `json:"costing"`
	CostingOptions    map[string]any   `json:"costing_options,omitempty"`
	DirectionsOptions map[string]any   `json:"directions_options,omitempty"`
	AvoidLocations    []map[string]any `json:"avoid_locations,omitempty"`
	DateTime          *DateTime        `json:"date_time,omitempty"`
	ID                string           `json:"id,omitempty"`
}

// Directions requests a route between the given locations.
func (r *Router) Directions(ctx context.Context, req *types.DirectionsRequest) (*types.Directions, error) {
	if len(req.Locations) < 2 {
		return nil, errors.NewValidationError(r.name, "directions needs at least two locations")
	}
	opts, err := asOptions[DirectionsOptions](r.name, req.Options)
	if err != nil {
		return nil, err
	}

	query := directionsQuery{
		Locations: waypoints(req.Locations),
		Costing:   req.Profile,
	}
	if opts != nil {
		if len(opts.Waypoints) > 0 {
			query.Locations = opts.Waypoints
		}
		if len(opts.CostingOptions) > 0 {
			query.CostingOptions = map[string]any{req.Profile: opts.CostingOptions}
		}
		directionsOpts := map[string]any{}
		if opts.Units != "" {
			directionsOpts["units"] = opts.Units
		}
		if opts.Language != "" {
			directionsOpts["language"] = opts.Language
		}
		if opts.DirectionsType != "" {
			directionsOpts["directions_type"] = opts.DirectionsType
		}
		if len(directionsOpts) > 0 {
			query.DirectionsOptions = directionsOpts
		}
		for _, loc := range opts.AvoidLocations {
			query.AvoidLocations = append(query.AvoidLocations, map[string]any{
				"lat": loc.Lat, "lon": loc.Lon,
			})
		}
		query.DateTime = opts.DateTime
		query.ID = opts.ID
	}

	body, err := r.client.Request(ctx, "/route", client.RequestOptions{
		GetParams: r.query,
		JSONBody:  query,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return r.parseDirections(body)
}

func (r *Router) parseDirections(body []byte) (*types.Directions, error) {
	if body == nil {
		return &types.Directions{}, nil
	}

	var resp struct {
		Trip struct {
			Legs []struct {
				Shape string `json:"shape"`
			} `json:"legs"`
			Summary struct {
				Time   float64 `json:"time"`
				Length float64 `json:"length"`
			} `json:"summary"`
		} `json:"trip"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(r.name, err.Error())
	}

	var geometry []types.Coordinate
	for _, leg := range resp.Trip.Legs {
		coords, err := geom.DecodePolyline6(leg.Shape)
		if err != nil {
			return nil, errors.NewJSONParseError(r.name, err.Error())
		}
		geometry = append(geometry, coords...)
	}

	// Valhalla reports length in the requested units, km by default.
	return &types.Directions{
		Routes: []types.Direction{{
			Geometry: geometry,
			Duration: int(resp.Trip.Summary.Time),
			Distance: int(resp.Trip.Summary.Length * 1000),
			Raw:      body,
		}},
		Raw: body,
	}, nil
}

// IsochronesOptions are the Valhalla-specific isochrone parameters.
type IsochronesOptions struct {
	// Colors per contour, hex without '#'.
	Colors []string

	// Polygons returns polygon contours instead of linestrings.
	Polygons bool

	// Denoise in [0,1] removes smaller contours.
	Denoise float64

	// Generalize is the Douglas-Peucker tolerance in meters.
	Generalize float64

	ShowLocations bool
	DateTime      *DateTime
}

type isochronesQuery struct {
	Locations     []Waypoint       `json:"locations"`
	Costing       string           `json:"costing"`
	Contours      []map[string]any `json:"contours"`
	Polygons      bool             `json:"polygons,omitempty"`
	Denoise       float64          `json:"denoise,omitempty"`
	Generalize    float64          `json:"generalize,omitempty"`
	ShowLocations bool             `json:"show_locations,omitempty"`
	DateTime      *DateTime        `json:"date_time,omitempty"`
}

// Isochrones requests reachability contours around a location. Intervals are
// given in seconds or meters and converted to Valhalla's minutes/kilometers.
func (r *Router) Isochrones(ctx context.Context, req *types.IsochronesRequest) (*types.Isochrones, error) {
	if len(req.Intervals) == 0 {
		return nil, errors.NewValidationError(r.name, "isochrones needs at least one interval")
	}
	opts, err := asOptions[IsochronesOptions](r.name, req.Options)
	if err != nil {
		return nil, err
	}

	intervalType := req.IntervalType
	if intervalType == "" {
		intervalType = types.IntervalTime
	}

	query := isochronesQuery{
		Locations: waypoints([]types.Coordinate{req.Location}),
		Costing:   req.Profile,
	}
	for i, interval := range req.Intervals {
		contour := map[string]any{}
		if intervalType == types.IntervalDistance {
			contour["distance"] = float64(interval) / 1000
		} else {
			contour["time"] = float64(interval) / 60
		}
		if opts != nil && i < len(opts.Colors) {
			contour["color"] = opts.Colors[i]
		}
		query.Contours = append(query.Contours, contour)
	}
	if opts != nil {
		query.Polygons = opts.Polygons
		query.Denoise = opts.Denoise
		query.Generalize = opts.Generalize
		query.ShowLocations = opts.ShowLocations
		query.DateTime = opts.DateTime
	}

	body, err := r.client.Request(ctx, "/isochrone", client.RequestOptions{
		GetParams: r.query,
		JSONBody:  query,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return r.parseIsochrones(body, req.Location, intervalType)
}

func (r *Router) parseIsochrones(body []byte, center types.Coordinate, intervalType string) (*types.Isochrones, error) {
	if body == nil {
		return &types.Isochrones{}, nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, errors.NewJSONParseError(r.name, err.Error())
	}

	out := &types.Isochrones{Raw: body}
	for _, feature := range fc.Features {
		ring := featureRing(feature.Geometry)
		if ring == nil {
			continue
		}

		contour, _ := feature.Properties["contour"].(float64)
		interval := int(contour * 60)
		if intervalType == types.IntervalDistance {
			interval = int(contour * 1000)
		}

		out.Isochrones = append(out.Isochrones, types.Isochrone{
			Geometry:     ring,
			Center:       center,
			Interval:     interval,
			IntervalType: intervalType,
		})
	}
	return out, nil
}

// featureRing extracts the outer ring whether contours were requested as
// polygons or linestrings.
func featureRing(g orb.Geometry) orb.Ring {
	switch geo := g.(type) {
	case orb.Polygon:
		if len(geo) > 0 {
			return geo[0]
		}
	case orb.MultiPolygon:
		if len(geo) > 0 && len(geo[0]) > 0 {
			return geo[0][0]
		}
	case orb.LineString:
		return orb.Ring(geo)
	}
	return nil
}

// MatrixOptions are the Valhalla-specific matrix parameters.
type MatrixOptions struct {
	// Units is "kilometers" (default) or "miles".
	Units string

	ID string
}

type matrixQuery struct {
	Sources []Waypoint `json:"sources"`
	Targets []Waypoint `json:"targets"`
	Costing string     `json:"costing"`
	Units   string     `json:"units,omitempty"`
	ID      string     `json:"id,omitempty"`
}

// Matrix requests a duration/distance table between the given locations.
func (r *Router) Matrix(ctx context.Context, req *types.MatrixRequest) (*types.Matrix, error) {
	if len(req.Locations) < 2 {
		return nil, errors.NewValidationError(r.name, "matrix needs at least two locations")
	}
	opts, err := asOptions[MatrixOptions](r.name, req.Options)
	if err != nil {
		return nil, err
	}

	query := matrixQuery{
		Sources: waypoints(subset(req.Locations, req.Sources)),
		Targets: waypoints(subset(req.Locations, req.Destinations)),
		Costing: req.Profile,
	}
	if opts != nil {
		query.Units = opts.Units
		query.ID = opts.ID
	}

	body, err := r.client.Request(ctx, "/sources_to_targets", client.RequestOptions{
		GetParams: r.query,
		JSONBody:  query,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return r.parseMatrix(body)
}

func (r *Router) parseMatrix(body []byte) (*types.Matrix, error) {
	if body == nil {
		return &types.Matrix{}, nil
	}

	var resp struct {
		SourcesToTargets [][]struct {
			Time     *float64 `json:"time"`
			Distance *float64 `json:"distance"`
		} `json:"sources_to_targets"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(r.name, err.Error())
	}

	out := &types.Matrix{Raw: body}
	for _, row := range resp.SourcesToTargets {
		durations := make([]float64, len(row))
		distances := make([]float64, len(row))
		for i, cell := range row {
			if cell.Time != nil {
				durations[i] = *cell.Time
			}
			if cell.Distance != nil {
				// km in the default units
				distances[i] = *cell.Distance * 1000
			}
		}
		out.Durations = append(out.Durations, durations)
		out.Distances = append(out.Distances, distances)
	}
	return out, nil
}

func waypoints(locations []types.Coordinate) []Waypoint {
	wps := make([]Waypoint, len(locations))
	for i, loc := range locations {
		wps[i] = Waypoint{Lat: loc.Lat, Lon: loc.Lon}
	}
	return wps
}

// subset picks locations by index; nil indices mean all.
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

func asOptions[T any](name string, v any) (*T, error) {
	if v == nil {
		return nil, nil
	}
	opts, ok := v.(*T)
	if !ok {
		return nil, errors.NewValidationError(name, "unexpected options type for this router")
	}
	return opts, nil
}
