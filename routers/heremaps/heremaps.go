// Package heremaps provides the HERE Maps router adapter (routing API 7.2).
// HERE splits operations across dedicated hosts (route, matrix, isoline) and
// supports two credential schemes: api_key and the legacy app_id/app_code
// pair.
package heremaps

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/khamaileon/routingpy/internal/convert"
	"github.com/khamaileon/routingpy/pkg/client"
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

// RouterName is the identifier for this router.
const RouterName = "heremaps"

// Default endpoints for the api_key scheme. The legacy app_id/app_code
// scheme uses the *.api.here.com hosts instead.
const (
	DefaultRouteURL   = "https://route.ls.hereapi.com/routing/7.2"
	DefaultMatrixURL  = "https://matrix.route.ls.hereapi.com/routing/7.2"
	DefaultIsolineURL = "https://isoline.route.ls.hereapi.com/routing/7.2"

	legacyRouteURL   = "https://route.api.here.com/routing/7.2"
	legacyMatrixURL  = "https://matrix.route.api.here.com/routing/7.2"
	legacyIsolineURL = "https://isoline.route.api.here.com/routing/7.2"
)

// Router implements the HERE Maps API adapter.
type Router struct {
	route   *client.Client
	matrix  *client.Client
	isoline *client.Client

	apiKey  string
	appID   string
	appCode string
}

// New creates a HERE router from the shared configuration. Either
// cfg.APIKey or the cfg.AppID/cfg.AppCode pair must be set; a BaseURL
// override routes all three operations to the same host.
func New(cfg router.Config) (*Router, error) {
	if cfg.APIKey == "" && (cfg.AppID == "" || cfg.AppCode == "") {
		return nil, errors.NewValidationError(RouterName, "either api_key or app_id/app_code must be set")
	}

	routeURL, matrixURL, isolineURL := DefaultRouteURL, DefaultMatrixURL, DefaultIsolineURL
	if cfg.APIKey == "" {
		routeURL, matrixURL, isolineURL = legacyRouteURL, legacyMatrixURL, legacyIsolineURL
	}
	if cfg.BaseURL != "" {
		routeURL, matrixURL, isolineURL = cfg.BaseURL, cfg.BaseURL, cfg.BaseURL
	}

	opts := cfg.ClientOptions()
	return &Router{
		route:   client.New(RouterName, routeURL, opts...),
		matrix:  client.New(RouterName, matrixURL, opts...),
		isoline: client.New(RouterName, isolineURL, opts...),
		apiKey:  cfg.APIKey,
		appID:   cfg.AppID,
		appCode: cfg.AppCode,
	}, nil
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg)
}

// Name returns the router identifier.
func (r *Router) Name() string { return RouterName }

// WayPoint renders a routed location with HERE-specific attributes.
type WayPoint struct {
	Coord types.Coordinate

	// Type is "geo" (default), "street" or "link".
	Type string

	// StopOverDuration in seconds keeps the route at the waypoint.
	StopOverDuration int

	// TransitRadius in meters widens the snapping search.
	TransitRadius int

	UserLabel string
}

func (w WayPoint) param() string {
	wpType := w.Type
	if wpType == "" {
		wpType = "geo"
	}

	var b strings.Builder
	b.WriteString(wpType)
	if w.StopOverDuration > 0 {
		b.WriteString("!stopOver," + strconv.Itoa(w.StopOverDuration))
	}
	b.WriteString("!" + convert.Floats([]float64{w.Coord.Lat, w.Coord.Lon}, ","))
	if w.TransitRadius > 0 {
		b.WriteString(";" + strconv.Itoa(w.TransitRadius))
	}
	if w.UserLabel != "" {
		if w.TransitRadius == 0 {
			b.WriteString(";")
		}
		b.WriteString(";" + w.UserLabel)
	}
	return b.String()
}

// RoutingMode composes HERE's mode parameter,
// e.g. "fastest;car;traffic:disabled;motorway:-2".
type RoutingMode struct {
	// Type is "fastest" (default) or "shortest".
	Type string

	// TransportMode is "car" (default), "pedestrian", "truck", ...
	TransportMode string

	// Traffic enables time-dependent routing.
	Traffic bool

	// Features weights route features: motorway, tollroad, boatFerry, ...
	// with values from -3 (strict exclude) to 2.
	Features map[string]int
}

func (m RoutingMode) param() string {
	modeType := m.Type
	if modeType == "" {
		modeType = "fastest"
	}
	transport := m.TransportMode
	if transport == "" {
		transport = "car"
	}

	parts := []string{modeType, transport}
	if m.Traffic {
		parts = append(parts, "traffic:enabled")
	} else {
		parts = append(parts, "traffic:disabled")
	}
	for feature, weight := range m.Features {
		parts = append(parts, feature+":"+strconv.Itoa(weight))
	}
	return strings.Join(parts, ";")
}

// DirectionsOptions are the HERE-specific directions parameters.
type DirectionsOptions struct {
	// Mode overrides the RoutingMode derived from the request profile.
	Mode *RoutingMode

	// WayPoints replaces the plain request locations when per-stop
	// attributes are needed.
	WayPoints []WayPoint

	// Alternatives requests up to N additional routes.
	Alternatives int

	Language     string
	MetricSystem string

	Departure time.Time
	Arrival   time.Time

	// AvoidAreas are bounding boxes the route must not cross, each given
	// as [topLeft, bottomRight].
	AvoidAreas [][2]types.Coordinate
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
	if opts != nil && !opts.Departure.IsZero() && !opts.Arrival.IsZero() {
		return nil, errors.NewValidationError(RouterName, "departure and arrival are mutually exclusive")
	}

	params := r.authParams()
	waypoints := plainWayPoints(req.Locations)
	if opts != nil && len(opts.WayPoints) > 0 {
		waypoints = opts.WayPoints
	}
	for i, wp := range waypoints {
		params.Set("waypoint"+strconv.Itoa(i), wp.param())
	}
	params.Set("mode", modeParam(req.Profile, opts))
	params.Set("routeAttributes", "waypoints,summary,shape")

	if opts != nil {
		if opts.Alternatives > 0 {
			params.Set("alternatives", strconv.Itoa(opts.Alternatives))
		}
		if opts.Language != "" {
			params.Set("language", opts.Language)
		}
		if opts.MetricSystem != "" {
			params.Set("metricSystem", opts.MetricSystem)
		}
		if !opts.Departure.IsZero() {
			params.Set("departure", opts.Departure.Format(time.RFC3339))
		}
		if !opts.Arrival.IsZero() {
			params.Set("arrival", opts.Arrival.Format(time.RFC3339))
		}
		if len(opts.AvoidAreas) > 0 {
			params.Set("avoidAreas", avoidAreasParam(opts.AvoidAreas))
		}
	}

	body, err := r.route.Request(ctx, "/calculateroute.json", client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseDirections(body)
}

func parseDirections(body []byte) (*types.Directions, error) {
	if body == nil {
		return &types.Directions{}, nil
	}

	var resp struct {
		Response struct {
			Route []struct {
				Shape   []string `json:"shape"`
				Summary struct {
					TravelTime float64 `json:"travelTime"`
					Distance   float64 `json:"distance"`
				} `json:"summary"`
			} `json:"route"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Directions{Raw: body}
	for _, route := range resp.Response.Route {
		geometry, err := parseShape(route.Shape)
		if err != nil {
			return nil, err
		}
		raw, _ := json.Marshal(route)
		out.Routes = append(out.Routes, types.Direction{
			Geometry: geometry,
			Duration: int(route.Summary.TravelTime),
			Distance: int(route.Summary.Distance),
			Raw:      raw,
		})
	}
	return out, nil
}

// MatrixOptions are the HERE-specific matrix parameters.
type MatrixOptions struct {
	Mode *RoutingMode

	// SummaryAttributes defaults to traveltime and distance.
	SummaryAttributes []string
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

	sources := subset(req.Locations, req.Sources)
	destinations := subset(req.Locations, req.Destinations)

	params := r.authParams()
	for i, loc := range sources {
		params.Set("start"+strconv.Itoa(i), "geo!"+latLon(loc))
	}
	for i, loc := range destinations {
		params.Set("destination"+strconv.Itoa(i), "geo!"+latLon(loc))
	}

	var mode *RoutingMode
	summaryAttributes := []string{"traveltime", "distance"}
	if opts != nil {
		mode = opts.Mode
		if len(opts.SummaryAttributes) > 0 {
			summaryAttributes = opts.SummaryAttributes
		}
	}
	params.Set("mode", modeParamFrom(req.Profile, mode))
	params.Set("summaryAttributes", strings.Join(summaryAttributes, ","))

	body, err := r.matrix.Request(ctx, "/calculatematrix.json", client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseMatrix(body, len(sources), len(destinations))
}

func parseMatrix(body []byte, numSources, numDestinations int) (*types.Matrix, error) {
	if body == nil {
		return &types.Matrix{}, nil
	}

	var resp struct {
		Response struct {
			MatrixEntry []struct {
				StartIndex       int `json:"startIndex"`
				DestinationIndex int `json:"destinationIndex"`
				Summary          struct {
					TravelTime float64 `json:"travelTime"`
					Distance   float64 `json:"distance"`
				} `json:"summary"`
			} `json:"matrixEntry"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	out := &types.Matrix{Raw: body}
	out.Durations = make([][]float64, numSources)
	out.Distances = make([][]float64, numSources)
	for i := range out.Durations {
		out.Durations[i] = make([]float64, numDestinations)
		out.Distances[i] = make([]float64, numDestinations)
	}
	for _, entry := range resp.Response.MatrixEntry {
		if entry.StartIndex >= numSources || entry.DestinationIndex >= numDestinations {
			continue
		}
		out.Durations[entry.StartIndex][entry.DestinationIndex] = entry.Summary.TravelTime
		out.Distances[entry.StartIndex][entry.DestinationIndex] = entry.Summary.Distance
	}
	return out, nil
}

// IsochronesOptions are the HERE-specific isoline parameters.
type IsochronesOptions struct {
	Mode *RoutingMode

	// Arrival computes the isoline towards the center instead of away
	// from it.
	Arrival   time.Time
	Departure time.Time
}

// Isochrones requests reachability isolines around a location.
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

	params := r.authParams()
	start := "geo!" + latLon(req.Location)
	if opts != nil && !opts.Arrival.IsZero() {
		params.Set("destination", start)
		params.Set("arrival", opts.Arrival.Format(time.RFC3339))
	} else {
		params.Set("start", start)
		if opts != nil && !opts.Departure.IsZero() {
			params.Set("departure", opts.Departure.Format(time.RFC3339))
		}
	}
	params.Set("range", convert.Ints(req.Intervals, ","))
	params.Set("rangetype", intervalType)

	var mode *RoutingMode
	if opts != nil {
		mode = opts.Mode
	}
	params.Set("mode", modeParamFrom(req.Profile, mode))

	body, err := r.isoline.Request(ctx, "/calculateisoline.json", client.RequestOptions{
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

	var resp struct {
		Response struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Isoline []struct {
				Range     int `json:"range"`
				Component []struct {
					Shape []string `json:"shape"`
				} `json:"component"`
			} `json:"isoline"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}

	if resp.Response.Center.Latitude != 0 || resp.Response.Center.Longitude != 0 {
		center = types.Coordinate{Lon: resp.Response.Center.Longitude, Lat: resp.Response.Center.Latitude}
	}

	out := &types.Isochrones{Raw: body}
	for _, isoline := range resp.Response.Isoline {
		if len(isoline.Component) == 0 {
			continue
		}
		coords, err := parseShape(isoline.Component[0].Shape)
		if err != nil {
			return nil, err
		}
		ring := make(orb.Ring, len(coords))
		for i, c := range coords {
			ring[i] = c.Point()
		}
		out.Isochrones = append(out.Isochrones, types.Isochrone{
			Geometry:     ring,
			Center:       center,
			Interval:     isoline.Range,
			IntervalType: intervalType,
		})
	}
	return out, nil
}

// parseShape decodes HERE's "lat,lon" string lists into coordinates.
func parseShape(shape []string) ([]types.Coordinate, error) {
	coords := make([]types.Coordinate, 0, len(shape))
	for _, s := range shape {
		parts := strings.Split(s, ",")
		if len(parts) < 2 {
			return nil, errors.NewJSONParseError(RouterName, "malformed shape entry: "+s)
		}
		lat, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, errors.NewJSONParseError(RouterName, err.Error())
		}
		lon, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, errors.NewJSONParseError(RouterName, err.Error())
		}
		coords = append(coords, types.Coordinate{Lon: lon, Lat: lat})
	}
	return coords, nil
}

func (r *Router) authParams() url.Values {
	params := url.Values{}
	if r.apiKey != "" {
		params.Set("apiKey", r.apiKey)
	} else {
		params.Set("app_id", r.appID)
		params.Set("app_code", r.appCode)
	}
	return params
}

func modeParam(profile string, opts *DirectionsOptions) string {
	if opts != nil && opts.Mode != nil {
		return opts.Mode.param()
	}
	return modeParamFrom(profile, nil)
}

func modeParamFrom(profile string, mode *RoutingMode) string {
	if mode != nil {
		return mode.param()
	}
	return RoutingMode{TransportMode: profile}.param()
}

func plainWayPoints(locations []types.Coordinate) []WayPoint {
	wps := make([]WayPoint, len(locations))
	for i, loc := range locations {
		wps[i] = WayPoint{Coord: loc}
	}
	return wps
}

func latLon(loc types.Coordinate) string {
	return convert.Floats([]float64{loc.Lat, loc.Lon}, ",")
}

func avoidAreasParam(areas [][2]types.Coordinate) string {
	parts := make([]string, len(areas))
	for i, area := range areas {
		parts[i] = latLon(area[0]) + ";" + latLon(area[1])
	}
	return strings.Join(parts, "!")
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
