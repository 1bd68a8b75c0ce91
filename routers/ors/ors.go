// Package ors provides the openrouteservice router adapter. All
// operations are JSON POSTs under /v2, authenticated with the API key in
// the Authorization header.
package ors

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/khamaileon/routingpy/internal/geom"
	"github.com/khamaileon/routingpy/pkg/client"
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

// RouterName is the identifier for this router.
const RouterName = "ors"

// DefaultBaseURL is the hosted openrouteservice endpoint.
const DefaultBaseURL = "https://api.openrouteservice.org"

// Response formats for the directions endpoint.
const (
	FormatJSON    = "json"
	FormatGeojson = "geojson"
)

// Router implements the openrouteservice API adapter.
type Router struct {
	client *client.Client
}

// New creates an openrouteservice router from the shared configuration.
// The hosted service requires cfg.APIKey; self-hosted instances reached
// via cfg.BaseURL may leave it empty.
func New(cfg router.Config) (*Router, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.APIKey == "" {
			return nil, errors.NewValidationError(RouterName, "an API key is required for the hosted service")
		}
		baseURL = DefaultBaseURL
	}

	opts := cfg.ClientOptions()
	if cfg.APIKey != "" {
		opts = append(opts, client.WithHeader("Authorization", cfg.APIKey))
	}
	return &Router{client: client.New(RouterName, baseURL, opts...)}, nil
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg)
}

// Name returns the router identifier.
func (r *Router) Name() string { return RouterName }

// DirectionsOptions are the openrouteservice-specific directions
// parameters.
type DirectionsOptions struct {
	// Format selects the response flavor, json (default) or geojson.
	Format string

	// Preference is fastest (default), shortest or recommended.
	Preference string

	Units    string
	Language string

	Instructions *bool

	// Elevation requests 3D geometry.
	Elevation bool

	// ExtraInfo requests per-segment metadata such as surface,
	// steepness or waytype.
	ExtraInfo []string

	// AvoidFeatures lists road classes to avoid: highways, tollways,
	// ferries, fords, steps.
	AvoidFeatures []string

	// AvoidPolygons excludes the given area from routing.
	AvoidPolygons *geojson.Geometry
}

type directionsBody struct {
	Coordinates  [][]float64    `json:"coordinates"`
	Preference   string         `json:"preference,omitempty"`
	Units        string         `json:"units,omitempty"`
	Language     string         `json:"language,omitempty"`
	Instructions *bool          `json:"instructions,omitempty"`
	Elevation    bool           `json:"elevation,omitempty"`
	ExtraInfo    []string       `json:"extra_info,omitempty"`
	Options      map[string]any `json:"options,omitempty"`
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

	format := FormatJSON
	payload := directionsBody{Coordinates: lonLatPairs(req.Locations)}
	elevation := false
	if opts != nil {
		if opts.Format != "" {
			format = opts.Format
		}
		payload.Preference = opts.Preference
		payload.Units = opts.Units
		payload.Language = opts.Language
		payload.Instructions = opts.Instructions
		payload.Elevation = opts.Elevation
		payload.ExtraInfo = opts.ExtraInfo
		elevation = opts.Elevation

		routeOpts := map[string]any{}
		if len(opts.AvoidFeatures) > 0 {
			routeOpts["avoid_features"] = opts.AvoidFeatures
		}
		if opts.AvoidPolygons != nil {
			routeOpts["avoid_polygons"] = opts.AvoidPolygons
		}
		if len(routeOpts) > 0 {
			payload.Options = routeOpts
		}
	}

	body, err := r.client.Request(ctx, "/v2/directions/"+req.Profile+"/"+format, client.RequestOptions{
		JSONBody: payload,
		DryRun:   req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	if format == FormatGeojson {
		return parseDirectionsGeojson(body)
	}
	return parseDirectionsJSON(body, elevation)
}

func parseDirectionsJSON(body []byte, elevation bool) (*types.Directions, error) {
	if body == nil {
		return &types.Directions{}, nil
	}

	var resp struct {
		Routes []struct {
			Geometry string `json:"geometry"`
			Summary  struct {
				Duration float64 `json:"duration"`
				Distance float64 `json:"distance"`
			} `json:"summary"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Directions{Raw: body}
	for _, route := range resp.Routes {
		var geometry []types.Coordinate
		var err error
		if elevation {
			geometry, err = geom.DecodePolyline5Elevation(route.Geometry)
		} else {
			geometry, err = geom.DecodePolyline5(route.Geometry)
		}
		if err != nil {
			return nil, errors.NewJSONParseError(RouterName, err.Error())
		}
		raw, _ := json.Marshal(route)
		out.Routes = append(out.Routes, types.Direction{
			Geometry: geometry,
			Duration: int(route.Summary.Duration),
			Distance: int(route.Summary.Distance),
			Raw:      raw,
		})
	}
	return out, nil
}

func parseDirectionsGeojson(body []byte) (*types.Directions, error) {
	if body == nil {
		return &types.Directions{}, nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Directions{Raw: body}
	for _, feature := range fc.Features {
		line, ok := feature.Geometry.(orb.LineString)
		if !ok {
			continue
		}
		geometry := make([]types.Coordinate, len(line))
		for i, pt := range line {
			geometry[i] = types.FromPoint(pt)
		}

		var duration, distance float64
		if summary, ok := feature.Properties["summary"].(map[string]any); ok {
			if v, ok := summary["duration"].(float64); ok {
				duration = v
			}
			if v, ok := summary["distance"].(float64); ok {
				distance = v
			}
		}
		raw, _ := json.Marshal(feature)
		out.Routes = append(out.Routes, types.Direction{
			Geometry: geometry,
			Duration: int(duration),
			Distance: int(distance),
			Raw:      raw,
		})
	}
	return out, nil
}

// IsochronesOptions are the openrouteservice-specific isochrone
// parameters.
type IsochronesOptions struct {
	// Interval adds intermediate contours every N seconds/meters.
	Interval int

	// Smoothing between 0 and 100 generalizes the contours.
	Smoothing float64

	// LocationType is start (default) or destination.
	LocationType string

	// Attributes requests contour metadata: area, reachfactor,
	// total_pop.
	Attributes []string
}

type isochronesBody struct {
	Locations    [][]float64 `json:"locations"`
	Range        []int       `json:"range"`
	RangeType    string      `json:"range_type,omitempty"`
	Interval     int         `json:"interval,omitempty"`
	Smoothing    float64     `json:"smoothing,omitempty"`
	LocationType string      `json:"location_type,omitempty"`
	Attributes   []string    `json:"attributes,omitempty"`
}

// Isochrones requests reachability contours around a location.
func (r *Router) Isochrones(ctx context.Context, req *types.IsochronesRequest) (*types.Isochrones, error) {
	if len(req.Intervals) == 0 {
		return nil, errors.NewValidationError(RouterName, "isochrones needs at least one interval")
	}
	opts, err := asOptions[IsochronesOptions](req.Options)
	if err != nil {
		return nil, err
	}

	intervalType := req.IntervalType
	if intervalType == "" {
		intervalType = types.IntervalTime
	}

	payload := isochronesBody{
		Locations: [][]float64{{req.Location.Lon, req.Location.Lat}},
		Range:     req.Intervals,
		RangeType: intervalType,
	}
	if opts != nil {
		payload.Interval = opts.Interval
		payload.Smoothing = opts.Smoothing
		payload.LocationType = opts.LocationType
		payload.Attributes = opts.Attributes
	}

	body, err := r.client.Request(ctx, "/v2/isochrones/"+req.Profile+"/geojson", client.RequestOptions{
		JSONBody: payload,
		DryRun:   req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseIsochrones(body, req.Location, intervalType)
}

func parseIsochrones(body []byte, center types.Coordinate, intervalType string) (*types.Isochrones, error) {
	if body == nil {
		return &types.Isochrones{}, nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Isochrones{Raw: body}
	for _, feature := range fc.Features {
		polygon, ok := feature.Geometry.(orb.Polygon)
		if !ok || len(polygon) == 0 {
			continue
		}

		interval := 0
		if v, ok := feature.Properties["value"].(float64); ok {
			interval = int(v)
		}
		isoCenter := center
		if c, ok := feature.Properties["center"].([]any); ok && len(c) == 2 {
			lon, lonOK := c[0].(float64)
			lat, latOK := c[1].(float64)
			if lonOK && latOK {
				isoCenter = types.Coordinate{Lon: lon, Lat: lat}
			}
		}
		out.Isochrones = append(out.Isochrones, types.Isochrone{
			Geometry:     polygon[0],
			Center:       isoCenter,
			Interval:     interval,
			IntervalType: intervalType,
		})
	}
	return out, nil
}

// MatrixOptions are the openrouteservice-specific matrix parameters.
type MatrixOptions struct {
	// Metrics defaults to duration and distance.
	Metrics []string

	Units string

	// ResolveLocations returns snapped location names in the raw
	// response.
	ResolveLocations bool
}

type matrixBody struct {
	Locations        [][]float64 `json:"locations"`
	Sources          []int       `json:"sources,omitempty"`
	Destinations     []int       `json:"destinations,omitempty"`
	Metrics          []string    `json:"metrics,omitempty"`
	Units            string      `json:"units,omitempty"`
	ResolveLocations bool        `json:"resolve_locations,omitempty"`
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

	payload := matrixBody{
		Locations:    lonLatPairs(req.Locations),
		Sources:      req.Sources,
		Destinations: req.Destinations,
		Metrics:      []string{"duration", "distance"},
	}
	if opts != nil {
		if len(opts.Metrics) > 0 {
			payload.Metrics = opts.Metrics
		}
		payload.Units = opts.Units
		payload.ResolveLocations = opts.ResolveLocations
	}

	body, err := r.client.Request(ctx, "/v2/matrix/"+req.Profile+"/json", client.RequestOptions{
		JSONBody: payload,
		DryRun:   req.DryRun,
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
		Durations [][]float64 `json:"durations"`
		Distances [][]float64 `json:"distances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}
	return &types.Matrix{
		Durations: resp.Durations,
		Distances: resp.Distances,
		Raw:       body,
	}, nil
}

func lonLatPairs(locations []types.Coordinate) [][]float64 {
	pairs := make([][]float64, len(locations))
	for i, loc := range locations {
		pairs[i] = []float64{loc.Lon, loc.Lat}
	}
	return pairs
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
