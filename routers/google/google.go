// Package google provides the Google Maps router adapter (Directions and
// Distance Matrix APIs). Google reports API-level failures in the body's
// status field with HTTP 200, so parsing starts with status mapping.
package google

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

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
	RouterName = "google"

	// DefaultBaseURL is the Google Maps web services root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"
)

// Router implements the Google Maps API adapter.
type Router struct {
	client *client.Client
	apiKey string
}

// New creates a Google router from the shared configuration. cfg.APIKey is
// required and sent as the "key" query parameter.
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

// DirectionsOptions are the Google-specific directions parameters.
type DirectionsOptions struct {
	// Alternatives requests more than one route.
	Alternatives bool

	// Optimize reorders intermediate waypoints for the shortest tour.
	Optimize bool

	// Avoid route features: "tolls", "highways", "ferries", "indoor".
	Avoid []string

	Language string
	Region   string

	// Units affects the raw response's display fields only: "metric" or
	// "imperial".
	Units string

	// DepartureTime and ArrivalTime are mutually exclusive;
	// ArrivalTime only applies to transit.
	DepartureTime time.Time
	ArrivalTime   time.Time

	// TrafficModel: "best_guess", "pessimistic", "optimistic".
	TrafficModel string

	// TransitMode: "bus", "subway", "train", "tram", "rail".
	TransitMode []string

	// TransitRoutingPreference: "less_walking" or "fewer_transfers".
	TransitRoutingPreference string
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
	if opts != nil && !opts.DepartureTime.IsZero() && !opts.ArrivalTime.IsZero() {
		return nil, errors.NewValidationError(RouterName, "departure_time and arrival_time are mutually exclusive")
	}

	params := r.baseParams()
	params.Set("origin", latLng(req.Locations[0]))
	params.Set("destination", latLng(req.Locations[len(req.Locations)-1]))
	params.Set("mode", req.Profile)

	if vias := req.Locations[1 : len(req.Locations)-1]; len(vias) > 0 {
		waypoints := make([]string, len(vias))
		for i, loc := range vias {
			waypoints[i] = latLng(loc)
		}
		value := strings.Join(waypoints, "|")
		if opts != nil && opts.Optimize {
			value = "optimize:true|" + value
		}
		params.Set("waypoints", value)
	}

	if opts != nil {
		if opts.Alternatives {
			params.Set("alternatives", "true")
		}
		setCommon(params, opts.Avoid, opts.Language, opts.Region, opts.Units,
			opts.DepartureTime, opts.ArrivalTime, opts.TrafficModel,
			opts.TransitMode, opts.TransitRoutingPreference)
	}

	body, err := r.client.Request(ctx, "/directions/json", client.RequestOptions{
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
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Routes       []struct {
			Legs []struct {
				Duration struct {
					Value float64 `json:"value"`
				} `json:"duration"`
				Distance struct {
					Value float64 `json:"value"`
				} `json:"distance"`
				Steps []struct {
					Polyline struct {
						Points string `json:"points"`
					} `json:"polyline"`
				} `json:"steps"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}
	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	out := &types.Directions{Raw: body}
	for _, route := range resp.Routes {
		var geometry []types.Coordinate
		var duration, distance float64
		for _, leg := range route.Legs {
			duration += leg.Duration.Value
			distance += leg.Distance.Value
			for _, step := range leg.Steps {
				coords, err := geom.DecodePolyline5(step.Polyline.Points)
				if err != nil {
					return nil, errors.NewJSONParseError(RouterName, err.Error())
				}
				geometry = append(geometry, coords...)
			}
		}
		raw, _ := json.Marshal(route)
		out.Routes = append(out.Routes, types.Direction{
			Geometry: geometry,
			Duration: int(duration),
			Distance: int(distance),
			Raw:      raw,
		})
	}
	return out, nil
}

// MatrixOptions are the Google-specific matrix parameters.
type MatrixOptions struct {
	Avoid    []string
	Language string
	Region   string
	Units    string

	DepartureTime time.Time
	ArrivalTime   time.Time
	TrafficModel  string

	TransitMode              []string
	TransitRoutingPreference string
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
	params.Set("origins", joinLocations(subset(req.Locations, req.Sources)))
	params.Set("destinations", joinLocations(subset(req.Locations, req.Destinations)))
	params.Set("mode", req.Profile)

	if opts != nil {
		setCommon(params, opts.Avoid, opts.Language, opts.Region, opts.Units,
			opts.DepartureTime, opts.ArrivalTime, opts.TrafficModel,
			opts.TransitMode, opts.TransitRoutingPreference)
	}

	body, err := r.client.Request(ctx, "/distancematrix/json", client.RequestOptions{
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
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Rows         []struct {
			Elements []struct {
				Status   string `json:"status"`
				Duration struct {
					Value float64 `json:"value"`
				} `json:"duration"`
				Distance struct {
					Value float64 `json:"value"`
				} `json:"distance"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}
	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	out := &types.Matrix{Raw: body}
	for _, row := range resp.Rows {
		durations := make([]float64, len(row.Elements))
		distances := make([]float64, len(row.Elements))
		for i, el := range row.Elements {
			durations[i] = el.Duration.Value
			distances[i] = el.Distance.Value
		}
		out.Durations = append(out.Durations, durations)
		out.Distances = append(out.Distances, distances)
	}
	return out, nil
}

// Isochrones is not offered by the Google Maps APIs.
func (r *Router) Isochrones(context.Context, *types.IsochronesRequest) (*types.Isochrones, error) {
	return nil, errors.NotSupported(RouterName, "isochrones")
}

// statusError maps Google's body-level status to unified errors. ZERO_RESULTS
// is not an error: the result is simply empty.
func statusError(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS", "":
		return nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return errors.NewOverQueryLimitError(RouterName, statusMessage(status, message))
	case "UNKNOWN_ERROR":
		return errors.NewServerError(RouterName, 500, statusMessage(status, message))
	default:
		// NOT_FOUND, MAX_WAYPOINTS_EXCEEDED, INVALID_REQUEST, REQUEST_DENIED, ...
		return errors.NewAPIError(RouterName, 400, statusMessage(status, message))
	}
}

func statusMessage(status, message string) string {
	if message == "" {
		return status
	}
	return status + ": " + message
}

func setCommon(params url.Values, avoid []string, language, region, units string,
	departure, arrival time.Time, trafficModel string,
	transitMode []string, transitPref string,
) {
	if len(avoid) > 0 {
		params.Set("avoid", strings.Join(avoid, "|"))
	}
	if language != "" {
		params.Set("language", language)
	}
	if region != "" {
		params.Set("region", region)
	}
	if units != "" {
		params.Set("units", units)
	}
	if !departure.IsZero() {
		params.Set("departure_time", strconv.FormatInt(departure.Unix(), 10))
	}
	if !arrival.IsZero() {
		params.Set("arrival_time", strconv.FormatInt(arrival.Unix(), 10))
	}
	if trafficModel != "" {
		params.Set("traffic_model", trafficModel)
	}
	if len(transitMode) > 0 {
		params.Set("transit_mode", strings.Join(transitMode, "|"))
	}
	if transitPref != "" {
		params.Set("transit_routing_preference", transitPref)
	}
}

func (r *Router) baseParams() url.Values {
	params := url.Values{}
	if r.apiKey != "" {
		params.Set("key", r.apiKey)
	}
	return params
}

// latLng renders a location in Google's lat,lng order.
func latLng(loc types.Coordinate) string {
	return convert.Floats([]float64{loc.Lat, loc.Lon}, ",")
}

func joinLocations(locations []types.Coordinate) string {
	parts := make([]string, len(locations))
	for i, loc := range locations {
		parts[i] = latLng(loc)
	}
	return strings.Join(parts, "|")
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
