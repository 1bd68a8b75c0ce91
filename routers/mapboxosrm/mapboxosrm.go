// Package mapboxosrm provides the adapter for Mapbox's OSRM-flavored
// hosted APIs: Directions v5, Isochrone v1 and Matrix v1. Unlike plain
// OSRM, the directions endpoint takes a form-encoded POST body and every
// call carries an access_token.
package mapboxosrm

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/khamaileon/routingpy/internal/convert"
	"github.com/khamaileon/routingpy/internal/geom"
	"github.com/khamaileon/routingpy/pkg/client"
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

// RouterName is the identifier for this router.
const RouterName = "mapbox_osrm"

// DefaultBaseURL is the Mapbox API host.
const DefaultBaseURL = "https://api.mapbox.com"

// Geometry formats accepted by the directions endpoint.
const (
	GeometryPolyline  = "polyline"
	GeometryPolyline6 = "polyline6"
	GeometryGeojson   = "geojson"
)

// Router implements the Mapbox OSRM API adapter.
type Router struct {
	client *client.Client
	token  string
}

// New creates a Mapbox router from the shared configuration. cfg.APIKey
// holds the access token.
func New(cfg router.Config) (*Router, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewValidationError(RouterName, "an access token is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Router{
		client: client.New(RouterName, baseURL, cfg.ClientOptions()...),
		token:  cfg.APIKey,
	}, nil
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg)
}

// Name returns the router identifier.
func (r *Router) Name() string { return RouterName }

// DirectionsOptions are the Mapbox-specific directions parameters.
type DirectionsOptions struct {
	Alternatives bool
	Steps        bool

	// Annotations requests per-segment metadata: duration, distance,
	// speed, congestion.
	Annotations []string

	// Geometries selects the geometry encoding, default polyline.
	Geometries string

	// Overview is "simplified" (default), "full" or "false".
	Overview string

	ContinueStraight *bool

	// Exclude removes road classes: toll, motorway, ferry.
	Exclude string

	// Radiuses and Bearings align with their OSRM counterparts, one
	// entry per location.
	Radiuses []int
	Bearings [][2]int

	Language        string
	RoundaboutExits bool
	WaypointNames   []string
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

	form := url.Values{}
	form.Set("coordinates", coordsPath(req.Locations))

	geometries := GeometryPolyline
	if opts != nil {
		if opts.Geometries != "" {
			geometries = opts.Geometries
		}
		if opts.Alternatives {
			form.Set("alternatives", "true")
		}
		if opts.Steps {
			form.Set("steps", "true")
		}
		if len(opts.Annotations) > 0 {
			form.Set("annotations", strings.Join(opts.Annotations, ","))
		}
		if opts.Overview != "" {
			form.Set("overview", opts.Overview)
		}
		if opts.ContinueStraight != nil {
			form.Set("continue_straight", convert.Bool(*opts.ContinueStraight))
		}
		if opts.Exclude != "" {
			form.Set("exclude", opts.Exclude)
		}
		if len(opts.Radiuses) > 0 {
			form.Set("radiuses", convert.Ints(opts.Radiuses, ";"))
		}
		if len(opts.Bearings) > 0 {
			parts := make([]string, len(opts.Bearings))
			for i, b := range opts.Bearings {
				parts[i] = strconv.Itoa(b[0]) + "," + strconv.Itoa(b[1])
			}
			form.Set("bearings", strings.Join(parts, ";"))
		}
		if opts.Language != "" {
			form.Set("language", opts.Language)
		}
		if opts.RoundaboutExits {
			form.Set("roundabout_exits", "true")
		}
		if len(opts.WaypointNames) > 0 {
			form.Set("waypoint_names", strings.Join(opts.WaypointNames, ";"))
		}
	}
	form.Set("geometries", geometries)

	body, err := r.client.Request(ctx, "/directions/v5/mapbox/"+req.Profile, client.RequestOptions{
		GetParams:   r.authParams(),
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
		DryRun:      req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseDirections(body, geometries)
}

func parseDirections(body []byte, geometries string) (*types.Directions, error) {
	if body == nil {
		return &types.Directions{}, nil
	}

	var resp struct {
		Routes []struct {
			Geometry json.RawMessage `json:"geometry"`
			Duration float64         `json:"duration"`
			Distance float64         `json:"distance"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Directions{Raw: body}
	for _, route := range resp.Routes {
		geometry, err := decodeGeometry(route.Geometry, geometries)
		if err != nil {
			return nil, err
		}
		raw, _ := json.Marshal(route)
		out.Routes = append(out.Routes, types.Direction{
			Geometry: geometry,
			Duration: int(route.Duration),
			Distance: int(route.Distance),
			Raw:      raw,
		})
	}
	return out, nil
}

func decodeGeometry(raw json.RawMessage, geometries string) ([]types.Coordinate, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch geometries {
	case GeometryGeojson:
		var line struct {
			Coordinates [][]float64 `json:"coordinates"`
		}
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, errors.NewJSONParseError(RouterName, err.Error())
		}
		coords := make([]types.Coordinate, len(line.Coordinates))
		for i, pair := range line.Coordinates {
			coords[i] = types.Coordinate{Lon: pair[0], Lat: pair[1]}
		}
		return coords, nil
	default:
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, errors.NewJSONParseError(RouterName, err.Error())
		}
		if geometries == GeometryPolyline6 {
			return geom.DecodePolyline6(encoded)
		}
		return geom.DecodePolyline5(encoded)
	}
}

// IsochronesOptions are the Mapbox-specific isochrone parameters.
type IsochronesOptions struct {
	// Colors are hex values without the leading #, one per contour.
	Colors []string

	// Denoise between 0 and 1 removes smaller contours; Generalize is
	// a simplification tolerance in meters.
	Denoise    float64
	Generalize float64
}

// Isochrones requests reachability contours around a location. Time
// intervals are given in seconds and converted to the API's minutes.
func (r *Router) Isochrones(ctx context.Context, req *types.IsochronesRequest) (*types.Isochrones, error) {
	if len(req.Intervals) == 0 {
		return nil, errors.NewValidationError(RouterName, "isochrones needs at least one interval")
	}
	if len(req.Intervals) > 4 {
		return nil, errors.NewValidationError(RouterName, "isochrones supports at most four intervals")
	}
	opts, err := asOptions[IsochronesOptions](req.Options)
	if err != nil {
		return nil, err
	}

	intervalType := req.IntervalType
	if intervalType == "" {
		intervalType = types.IntervalTime
	}

	params := r.authParams()
	switch intervalType {
	case types.IntervalTime:
		minutes := make([]int, len(req.Intervals))
		for i, sec := range req.Intervals {
			minutes[i] = sec / 60
		}
		params.Set("contours_minutes", convert.Ints(minutes, ","))
	case types.IntervalDistance:
		params.Set("contours_meters", convert.Ints(req.Intervals, ","))
	default:
		return nil, errors.NewValidationError(RouterName, "interval_type must be time or distance")
	}
	params.Set("polygons", "true")

	if opts != nil {
		if len(opts.Colors) > 0 {
			params.Set("contours_colors", strings.Join(opts.Colors, ","))
		}
		if opts.Denoise > 0 {
			params.Set("denoise", convert.FormatFloat(opts.Denoise))
		}
		if opts.Generalize > 0 {
			params.Set("generalize", convert.FormatFloat(opts.Generalize))
		}
	}

	path := "/isochrone/v1/mapbox/" + req.Profile + "/" +
		convert.Floats([]float64{req.Location.Lon, req.Location.Lat}, ",")
	body, err := r.client.Request(ctx, path, client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
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
		var ring orb.Ring
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				ring = g[0]
			}
		case orb.LineString:
			ring = orb.Ring(g)
		}

		interval := 0
		if v, ok := feature.Properties["contour"]; ok {
			if f, ok := v.(float64); ok {
				interval = int(f)
				if intervalType == types.IntervalTime {
					interval *= 60
				}
			}
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

// MatrixOptions are the Mapbox-specific matrix parameters.
type MatrixOptions struct {
	// Annotations defaults to duration and distance.
	Annotations []string
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

	params := r.authParams()
	annotations := []string{"duration", "distance"}
	if opts != nil && len(opts.Annotations) > 0 {
		annotations = opts.Annotations
	}
	params.Set("annotations", strings.Join(annotations, ","))
	if len(req.Sources) > 0 {
		params.Set("sources", convert.Ints(req.Sources, ";"))
	}
	if len(req.Destinations) > 0 {
		params.Set("destinations", convert.Ints(req.Destinations, ";"))
	}

	path := "/directions-matrix/v1/mapbox/" + req.Profile + "/" + coordsPath(req.Locations)
	body, err := r.client.Request(ctx, path, client.RequestOptions{
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

func (r *Router) authParams() url.Values {
	params := url.Values{}
	params.Set("access_token", r.token)
	return params
}

func coordsPath(locations []types.Coordinate) string {
	parts := make([]string, len(locations))
	for i, loc := range locations {
		parts[i] = convert.Floats([]float64{loc.Lon, loc.Lat}, ",")
	}
	return strings.Join(parts, ";")
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
