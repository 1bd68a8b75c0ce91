// Package otp provides the OpenTripPlanner v2 router adapter. Trip
// planning goes through the GraphQL index API; isochrones and travel
// time rasters use the traveltime extension endpoints.
package otp

import (
	"context"
	"net/url"
	"strings"
	"time"

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
const RouterName = "otp"

// DefaultBaseURL assumes a local OpenTripPlanner instance; there is no
// hosted service.
const DefaultBaseURL = "http://localhost:8080"

// DefaultNumItineraries matches the planner's own default.
const DefaultNumItineraries = 3

const planQuery = `query Plan($from: InputCoordinates, $to: InputCoordinates, $date: String, $time: String, $arriveBy: Boolean, $numItineraries: Int, $transportModes: [TransportMode]) {
  plan(from: $from, to: $to, date: $date, time: $time, arriveBy: $arriveBy, numItineraries: $numItineraries, transportModes: $transportModes) {
    itineraries {
      duration
      startTime
      endTime
      legs {
        distance
        legGeometry { points }
      }
    }
  }
}`

// Router implements the OpenTripPlanner v2 adapter.
type Router struct {
	client *client.Client
}

// New creates an OpenTripPlanner router from the shared configuration.
func New(cfg router.Config) (*Router, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Router{client: client.New(RouterName, baseURL, cfg.ClientOptions()...)}, nil
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg)
}

// Name returns the router identifier.
func (r *Router) Name() string { return RouterName }

// DirectionsOptions are the OpenTripPlanner-specific trip parameters.
// Exactly one of Departure or Arrival must be set.
type DirectionsOptions struct {
	Departure time.Time
	Arrival   time.Time

	// NumItineraries caps the returned alternatives, default 3.
	NumItineraries int

	// Modes overrides the transport modes derived from the request
	// profile, e.g. WALK, TRANSIT, BICYCLE.
	Modes []string
}

// Directions plans a trip between the given locations.
func (r *Router) Directions(ctx context.Context, req *types.DirectionsRequest) (*types.Directions, error) {
	if len(req.Locations) != 2 {
		return nil, errors.NewValidationError(RouterName, "trip planning needs exactly two locations")
	}
	opts, err := asOptions[DirectionsOptions](req.Options)
	if err != nil {
		return nil, err
	}
	if opts == nil || (opts.Departure.IsZero() && opts.Arrival.IsZero()) {
		return nil, errors.NewValidationError(RouterName, "either departure or arrival must be set")
	}
	if !opts.Departure.IsZero() && !opts.Arrival.IsZero() {
		return nil, errors.NewValidationError(RouterName, "departure and arrival are mutually exclusive")
	}

	when := opts.Departure
	arriveBy := false
	if !opts.Arrival.IsZero() {
		when = opts.Arrival
		arriveBy = true
	}

	numItineraries := opts.NumItineraries
	if numItineraries == 0 {
		numItineraries = DefaultNumItineraries
	}

	transportModes := make([]map[string]string, 0)
	for _, mode := range modes(req.Profile, opts.Modes) {
		transportModes = append(transportModes, map[string]string{"mode": mode})
	}

	payload := map[string]any{
		"query": planQuery,
		"variables": map[string]any{
			"from":           map[string]float64{"lat": req.Locations[0].Lat, "lon": req.Locations[0].Lon},
			"to":             map[string]float64{"lat": req.Locations[1].Lat, "lon": req.Locations[1].Lon},
			"date":           when.Format("2006-01-02"),
			"time":           when.Format("15:04"),
			"arriveBy":       arriveBy,
			"numItineraries": numItineraries,
			"transportModes": transportModes,
		},
	}

	body, err := r.client.Request(ctx, "/otp/routers/default/index/graphql", client.RequestOptions{
		JSONBody: payload,
		DryRun:   req.DryRun,
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
		Data struct {
			Plan struct {
				Itineraries []struct {
					Duration  float64 `json:"duration"`
					StartTime int64   `json:"startTime"`
					EndTime   int64   `json:"endTime"`
					Legs      []struct {
						Distance    float64 `json:"distance"`
						LegGeometry struct {
							Points string `json:"points"`
						} `json:"legGeometry"`
					} `json:"legs"`
				} `json:"itineraries"`
			} `json:"plan"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewJSONParseError(RouterName, err.Error())
	}
	if len(resp.Errors) > 0 {
		return nil, errors.NewAPIError(RouterName, 200, resp.Errors[0].Message)
	}

	out := &types.Directions{Raw: body}
	for _, itinerary := range resp.Data.Plan.Itineraries {
		var geometry []types.Coordinate
		distance := 0.0
		for _, leg := range itinerary.Legs {
			distance += leg.Distance
			if leg.LegGeometry.Points == "" {
				continue
			}
			coords, err := geom.DecodePolyline5(leg.LegGeometry.Points)
			if err != nil {
				return nil, errors.NewJSONParseError(RouterName, err.Error())
			}
			geometry = append(geometry, coords...)
		}

		raw, _ := json.Marshal(itinerary)
		out.Routes = append(out.Routes, types.Direction{
			Geometry:  geometry,
			Duration:  int(itinerary.Duration),
			Distance:  int(distance),
			Departure: time.UnixMilli(itinerary.StartTime).UTC(),
			Arrival:   time.UnixMilli(itinerary.EndTime).UTC(),
			Raw:       raw,
		})
	}
	return out, nil
}

// IsochronesOptions are the OpenTripPlanner-specific isochrone
// parameters.
type IsochronesOptions struct {
	// Departure anchors the search; defaults to now.
	Departure time.Time

	ArriveBy bool

	// Modes overrides the transport modes derived from the request
	// profile.
	Modes []string
}

// Isochrones requests reachability contours around a location. Only
// time intervals are supported.
func (r *Router) Isochrones(ctx context.Context, req *types.IsochronesRequest) (*types.Isochrones, error) {
	if len(req.Intervals) == 0 {
		return nil, errors.NewValidationError(RouterName, "isochrones needs at least one interval")
	}
	if req.IntervalType == types.IntervalDistance {
		return nil, errors.NewValidationError(RouterName, "only time intervals are supported")
	}
	opts, err := asOptions[IsochronesOptions](req.Options)
	if err != nil {
		return nil, err
	}

	departure := time.Now()
	arriveBy := false
	var optModes []string
	if opts != nil {
		if !opts.Departure.IsZero() {
			departure = opts.Departure
		}
		arriveBy = opts.ArriveBy
		optModes = opts.Modes
	}

	params := url.Values{}
	params.Set("batch", "true")
	params.Set("location", convert.Floats([]float64{req.Location.Lat, req.Location.Lon}, ","))
	params.Set("time", departure.Format(time.RFC3339))
	params.Set("modes", strings.Join(modes(req.Profile, optModes), ","))
	params.Set("arriveBy", convert.Bool(arriveBy))
	for _, interval := range req.Intervals {
		params.Add("cutoff", convert.SecondsToISO8601(interval))
	}

	body, err := r.client.Request(ctx, "/otp/traveltime/isochrone", client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	return parseIsochrones(body, req.Location)
}

func parseIsochrones(body []byte, center types.Coordinate) (*types.Isochrones, error) {
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
		case orb.MultiPolygon:
			if len(g) > 0 && len(g[0]) > 0 {
				ring = g[0][0]
			}
		}

		interval := 0
		if v, ok := feature.Properties["time"].(float64); ok {
			interval = int(v)
		}
		out.Isochrones = append(out.Isochrones, types.Isochrone{
			Geometry:     ring,
			Center:       center,
			Interval:     interval,
			IntervalType: types.IntervalTime,
		})
	}
	return out, nil
}

// RasterOptions are the OpenTripPlanner-specific travel time surface
// parameters.
type RasterOptions struct {
	Departure time.Time
	ArriveBy  bool
	Modes     []string
}

// Raster requests a travel time surface image around a location.
func (r *Router) Raster(ctx context.Context, req *types.RasterRequest) (*types.Raster, error) {
	if req.Cutoff <= 0 {
		return nil, errors.NewValidationError(RouterName, "a positive cutoff is required")
	}
	opts, err := asOptions[RasterOptions](req.Options)
	if err != nil {
		return nil, err
	}

	departure := time.Now()
	arriveBy := false
	var optModes []string
	if opts != nil {
		if !opts.Departure.IsZero() {
			departure = opts.Departure
		}
		arriveBy = opts.ArriveBy
		optModes = opts.Modes
	}

	params := url.Values{}
	params.Set("batch", "true")
	params.Set("location", convert.Floats([]float64{req.Location.Lat, req.Location.Lon}, ","))
	params.Set("time", departure.Format(time.RFC3339))
	params.Set("modes", strings.Join(modes(req.Profile, optModes), ","))
	params.Set("arriveBy", convert.Bool(arriveBy))
	params.Set("cutoff", convert.SecondsToISO8601(req.Cutoff))

	body, err := r.client.Request(ctx, "/otp/traveltime/surface", client.RequestOptions{
		GetParams: params,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &types.Raster{}, nil
	}
	return &types.Raster{Image: body, MaxTravelTime: req.Cutoff}, nil
}

// Matrix is not offered by OpenTripPlanner.
func (r *Router) Matrix(ctx context.Context, req *types.MatrixRequest) (*types.Matrix, error) {
	return nil, errors.NotSupported(RouterName, "matrix")
}

// modes resolves the transport mode list from an explicit override or
// the request profile, e.g. "WALK,TRANSIT".
func modes(profile string, override []string) []string {
	if len(override) > 0 {
		return override
	}
	if profile == "" {
		return []string{"WALK", "TRANSIT"}
	}
	parts := strings.Split(profile, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.ToUpper(strings.TrimSpace(p))
	}
	return out
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
