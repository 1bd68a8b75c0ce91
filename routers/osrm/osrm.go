// Package osrm provides the OSRM router adapter. It serves as the reference
// implementation for the other adapters.
package osrm

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/khamaileon/routingpy/internal/convert"
	"github.com/khamaileon/routingpy/internal/geom"
	"github.com/khamaileon/routingpy/pkg/client"
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

const (
	// RouterName is the identifier for this router.
	RouterName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"
)

// Geometry formats accepted by the OSRM API.
const (
	GeometryPolyline  = "polyline"
	GeometryPolyline6 = "polyline6"
	GeometryGeoJSON   = "geojson"
)

// Router implements the OSRM API adapter.
type Router struct {
	client *client.Client
}

// New creates an OSRM router from the shared configuration.
func New(cfg router.Config) *Router {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Router{
		client: client.New(RouterName, baseURL, cfg.ClientOptions()...),
	}
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg), nil
}

// Name returns the router identifier.
func (r *Router) Name() string { return RouterName }

// DirectionsOptions are the OSRM-specific directions parameters.
type DirectionsOptions struct {
	// Alternatives requests up to N alternative routes.
	Alternatives int

	// Steps includes turn-by-turn steps in the raw response.
	Steps bool

	// Annotations includes per-segment metadata in the raw response.
	Annotations bool

	// Geometries selects the shape encoding: GeometryPolyline (default),
	// GeometryPolyline6 or GeometryGeoJSON.
	Geometries string

	// Overview selects shape granularity: "simplified" (default), "full"
	// or "false".
	Overview string

	// ContinueStraight forces the route to keep going straight at
	// waypoints. One of "default", "true", "false".
	ContinueStraight string

	// Radiuses limits snapping per coordinate, in meters. -1 means
	// unlimited.
	Radiuses []float64

	// Bearings restricts the direction of travel per coordinate as
	// {value, range} pairs in degrees.
	Bearings [][2]int
}

// Directions requests a route between the given locations.
func (r *Router) Directions(ctx context.Context, req *types.DirectionsRequest) (*types.Directions, error) {
	if len(req.Locations) < 2 {
		return nil, errors.NewValidationError(RouterName, "directions needs at least two locations")
	}
	opts, err := directionsOptions(req.Options)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	geometries := GeometryPolyline
	if opts != nil {
		if opts.Alternatives > 0 {
			params.Set("alternatives", strconv.Itoa(opts.Alternatives))
		}
		if opts.Steps {
			params.Set("steps", "true")
		}
		if opts.Annotations {
			params.Set("annotations", "true")
		}
		if opts.Geometries != "" {
			geometries = opts.Geometries
		}
		if opts.Overview != "" {
			params.Set("overview", opts.Overview)
		}
		if opts.ContinueStraight != "" {
			params.Set("continue_straight", opts.ContinueStraight)
		}
		if len(opts.Radiuses) > 0 {
			params.Set("radiuses", radiusesParam(opts.Radiuses))
		}
		if len(opts.Bearings) > 0 {
			params.Set("bearings", bearingsParam(opts.Bearings))
		}
	}
	params.Set("geometries", geometries)

	path := "/route/v1/" + profilePath(req.Profile) + "/" + coordsPath(req.Locations)
	body, err := r.client.Request(ctx, path, client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
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
			Distance float64         `json:"distance"`
			Duration float64         `json:"duration"`
			Geometry json.RawMessage `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Directions{Raw: body}
	for _, route := range resp.Routes {
		geometry, err := decodeGeometry(route.Geometry, geometries)
		if err != nil {
			return nil, errors.NewJSONParseError(RouterName, err.Error())
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
	switch geometries {
	case GeometryGeoJSON:
		var g struct {
			Coordinates [][]float64 `json:"coordinates"`
		}
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		coords := make([]types.Coordinate, len(g.Coordinates))
		for i, c := range g.Coordinates {
			coords[i] = types.Coordinate{Lon: c[0], Lat: c[1]}
		}
		return coords, nil
	case GeometryPolyline6:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return geom.DecodePolyline6(s)
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return geom.DecodePolyline5(s)
	}
}

// MatrixOptions are the OSRM-specific matrix parameters.
type MatrixOptions struct {
	// Annotations selects the tables to compute: "duration", "distance"
	// or both. Defaults to both.
	Annotations []string
}

// Matrix requests a duration/distance table between the given locations.
func (r *Router) Matrix(ctx context.Context, req *types.MatrixRequest) (*types.Matrix, error) {
	if len(req.Locations) < 2 {
		return nil, errors.NewValidationError(RouterName, "matrix needs at least two locations")
	}
	opts, err := matrixOptions(req.Options)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
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

	path := "/table/v1/" + profilePath(req.Profile) + "/" + coordsPath(req.Locations)
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

// Isochrones is not offered by OSRM.
func (r *Router) Isochrones(context.Context, *types.IsochronesRequest) (*types.Isochrones, error) {
	return nil, errors.NotSupported(RouterName, "isochrones")
}

func profilePath(profile string) string {
	if profile == "" {
		return "driving"
	}
	return profile
}

func coordsPath(locations []types.Coordinate) string {
	parts := make([]string, len(locations))
	for i, loc := range locations {
		parts[i] = convert.Floats([]float64{loc.Lon, loc.Lat}, ",")
	}
	return strings.Join(parts, ";")
}

func radiusesParam(radiuses []float64) string {
	parts := make([]string, len(radiuses))
	for i, rad := range radiuses {
		if rad < 0 {
			parts[i] = "unlimited"
		} else {
			parts[i] = convert.FormatFloat(rad)
		}
	}
	return strings.Join(parts, ";")
}

func bearingsParam(bearings [][2]int) string {
	parts := make([]string, len(bearings))
	for i, b := range bearings {
		parts[i] = strconv.Itoa(b[0]) + "," + strconv.Itoa(b[1])
	}
	return strings.Join(parts, ";")
}

func directionsOptions(v any) (*DirectionsOptions, error) {
	if v == nil {
		return nil, nil
	}
	opts, ok := v.(*DirectionsOptions)
	if !ok {
		return nil, errors.NewValidationError(RouterName, "options must be *osrm.DirectionsOptions")
	}
	return opts, nil
}

func matrixOptions(v any) (*MatrixOptions, error) {
	if v == nil {
		return nil, nil
	}
	opts, ok := v.(*MatrixOptions)
	if !ok {
		return nil, errors.NewValidationError(RouterName, "options must be *osrm.MatrixOptions")
	}
	return opts, nil
}
