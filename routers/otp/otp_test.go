package otp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

func newTestRouter(t *testing.T, handler http.HandlerFunc) *Router {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := New(router.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return r
}

func TestDirections(t *testing.T) {
	departure := time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/otp/routers/default/index/graphql", req.URL.Path)

		var payload struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
		assert.Contains(t, payload.Query, "plan(")
		assert.Equal(t, "2024-03-15", payload.Variables["date"])
		assert.Equal(t, "08:30", payload.Variables["time"])
		assert.Equal(t, false, payload.Variables["arriveBy"])
		assert.Equal(t, float64(3), payload.Variables["numItineraries"])

		w.Write([]byte(`{"data":{"plan":{"itineraries":[{
			"duration":1922,
			"startTime":1710491400000,
			"endTime":1710493322000,
			"legs":[
				{"distance":540.5,"legGeometry":{"points":"_p~iF~ps|U"}},
				{"distance":1200.2,"legGeometry":{"points":"_ulLnnqC"}}
			]
		}]}}}`))
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: []types.Coordinate{
			{Lon: 8.34234, Lat: 48.23424},
			{Lon: 8.58232, Lat: 48.65145},
		},
		Profile: "WALK,TRANSIT",
		Options: &DirectionsOptions{Departure: departure},
	})
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)

	trip := res.First()
	assert.Equal(t, 1922, trip.Duration)
	assert.Equal(t, 1740, trip.Distance)
	assert.Equal(t, time.UnixMilli(1710491400000).UTC(), trip.Departure)
	assert.Equal(t, time.UnixMilli(1710493322000).UTC(), trip.Arrival)
	assert.Len(t, trip.Geometry, 2)
}

func TestDirectionsRequiresTime(t *testing.T) {
	r, err := New(router.Config{})
	require.NoError(t, err)

	locations := []types.Coordinate{{Lon: 8, Lat: 48}, {Lon: 9, Lat: 49}}

	_, err = r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: locations,
		Profile:   "WALK",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either departure or arrival")

	_, err = r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: locations,
		Profile:   "WALK",
		Options: &DirectionsOptions{
			Departure: time.Now(),
			Arrival:   time.Now().Add(time.Hour),
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestDirectionsGraphQLError(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"no trip found"}]}`))
	})

	_, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: []types.Coordinate{{Lon: 8, Lat: 48}, {Lon: 9, Lat: 49}},
		Profile:   "WALK",
		Options:   &DirectionsOptions{Departure: time.Now()},
	})
	require.Error(t, err)
	var routerErr *errors.RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, errors.TypeAPI, routerErr.Type)
}

func TestIsochrones(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/otp/traveltime/isochrone", req.URL.Path)
		q := req.URL.Query()
		assert.Equal(t, "48.23424,8.34234", q.Get("location"))
		assert.Equal(t, []string{"PT10M", "PT20M"}, q["cutoff"])
		assert.Equal(t, "true", q.Get("batch"))

		w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"time":600},
			 "geometry":{"type":"MultiPolygon","coordinates":[[[[8.3,48.2],[8.4,48.3],[8.3,48.2]]]]}},
			{"type":"Feature","properties":{"time":1200},
			 "geometry":{"type":"MultiPolygon","coordinates":[[[[8.2,48.1],[8.5,48.4],[8.2,48.1]]]]}}
		]}`))
	})

	res, err := r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location:  types.Coordinate{Lon: 8.34234, Lat: 48.23424},
		Profile:   "WALK",
		Intervals: []int{600, 1200},
	})
	require.NoError(t, err)
	require.Len(t, res.Isochrones, 2)
	assert.Equal(t, 600, res.Isochrones[0].Interval)
	assert.Equal(t, types.IntervalTime, res.Isochrones[0].IntervalType)
	assert.Len(t, res.Isochrones[1].Geometry, 3)
}

func TestIsochronesRejectsDistance(t *testing.T) {
	r, err := New(router.Config{})
	require.NoError(t, err)

	_, err = r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location:     types.Coordinate{Lon: 8, Lat: 48},
		Profile:      "WALK",
		Intervals:    []int{1000},
		IntervalType: types.IntervalDistance,
	})
	require.Error(t, err)
}

func TestRaster(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4e, 0x47}

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/otp/traveltime/surface", req.URL.Path)
		q := req.URL.Query()
		assert.Equal(t, "PT30M", q.Get("cutoff"))
		assert.Equal(t, "48.23424,8.34234", q.Get("location"))

		w.Write(image)
	})

	res, err := r.Raster(context.Background(), &types.RasterRequest{
		Location: types.Coordinate{Lon: 8.34234, Lat: 48.23424},
		Profile:  "WALK",
		Cutoff:   1800,
	})
	require.NoError(t, err)
	assert.Equal(t, image, res.Image)
	assert.Equal(t, 1800, res.MaxTravelTime)
}

func TestRasterRequiresCutoff(t *testing.T) {
	r, err := New(router.Config{})
	require.NoError(t, err)

	_, err = r.Raster(context.Background(), &types.RasterRequest{
		Location: types.Coordinate{Lon: 8, Lat: 48},
		Profile:  "WALK",
	})
	require.Error(t, err)
}

func TestMatrixNotSupported(t *testing.T) {
	r, err := New(router.Config{})
	require.NoError(t, err)

	_, err = r.Matrix(context.Background(), &types.MatrixRequest{
		Locations: []types.Coordinate{{Lon: 8, Lat: 48}, {Lon: 9, Lat: 49}},
	})
	require.ErrorIs(t, err, errors.ErrNotSupported)
}
