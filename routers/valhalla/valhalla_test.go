package valhalla

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khamaileon/routingpy/internal/geom"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

var testLocations = []types.Coordinate{
	{Lon: 8.681495, Lat: 49.41461},
	{Lon: 8.687872, Lat: 49.420318},
}

func newTestRouter(t *testing.T, handler http.HandlerFunc) *Router {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(router.Config{BaseURL: srv.URL})
}

func TestDirections(t *testing.T) {
	shape := geom.EncodePolyline6(testLocations)
	var gotBody map[string]any

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/route", req.URL.Path)
		b, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		fmt.Fprintf(w, `{"trip":{"legs":[{"shape":%q}],"summary":{"time":1800,"length":24.8}}}`, shape)
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations,
		Profile:   "auto",
		Options: &DirectionsOptions{
			CostingOptions: map[string]any{"use_ferry": 0},
			Units:          "kilometers",
			DateTime:       &DateTime{Type: DateTimeDepartAt, Value: "2021-03-03T08:06"},
			ID:             "req-1",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "auto", gotBody["costing"])
	assert.Equal(t, "req-1", gotBody["id"])
	assert.Contains(t, gotBody, "costing_options")
	locations := gotBody["locations"].([]any)
	require.Len(t, locations, 2)
	first := locations[0].(map[string]any)
	assert.InDelta(t, 49.41461, first["lat"].(float64), 1e-9)

	route := res.First()
	require.NotNil(t, route)
	assert.Equal(t, 1800, route.Duration)
	assert.Equal(t, 24800, route.Distance)
	require.Len(t, route.Geometry, 2)
	assert.InDelta(t, 8.681495, route.Geometry[0].Lon, 1e-6)
}

func TestIsochrones(t *testing.T) {
	var gotBody map[string]any

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/isochrone", req.URL.Path)
		b, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		fmt.Fprint(w, `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"contour":10},"geometry":{"type":"Polygon","coordinates":[[[8.6,49.4],[8.7,49.4],[8.7,49.5],[8.6,49.4]]]}},
			{"type":"Feature","properties":{"contour":5},"geometry":{"type":"LineString","coordinates":[[8.65,49.41],[8.66,49.42]]}}
		]}`)
	})

	res, err := r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location:  testLocations[0],
		Profile:   "pedestrian",
		Intervals: []int{300, 600},
		Options:   &IsochronesOptions{Polygons: true, Denoise: 0.5},
	})
	require.NoError(t, err)

	contours := gotBody["contours"].([]any)
	require.Len(t, contours, 2)
	assert.InDelta(t, 5.0, contours[0].(map[string]any)["time"].(float64), 1e-9)
	assert.Equal(t, true, gotBody["polygons"])

	require.Len(t, res.Isochrones, 2)
	assert.Equal(t, 600, res.Isochrones[0].Interval)
	assert.Equal(t, types.IntervalTime, res.Isochrones[0].IntervalType)
	assert.Len(t, res.Isochrones[0].Geometry, 4)
	assert.Equal(t, 300, res.Isochrones[1].Interval)
	assert.Equal(t, testLocations[0], res.Isochrones[0].Center)
}

func TestIsochronesDistanceIntervals(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		b, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		contour := body["contours"].([]any)[0].(map[string]any)
		assert.InDelta(t, 2.0, contour["distance"].(float64), 1e-9)
		fmt.Fprint(w, `{"type":"FeatureCollection","features":[]}`)
	})

	_, err := r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location:     testLocations[0],
		Profile:      "auto",
		Intervals:    []int{2000},
		IntervalType: types.IntervalDistance,
	})
	require.NoError(t, err)
}

func TestMatrix(t *testing.T) {
	var gotBody matrixQuery

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/sources_to_targets", req.URL.Path)
		b, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		fmt.Fprint(w, `{"sources_to_targets":[[{"time":0,"distance":0},{"time":300,"distance":4.2}]]}`)
	})

	res, err := r.Matrix(context.Background(), &types.MatrixRequest{
		Locations: testLocations,
		Profile:   "auto",
		Sources:   []int{0},
	})
	require.NoError(t, err)

	require.Len(t, gotBody.Sources, 1)
	require.Len(t, gotBody.Targets, 2)

	require.Len(t, res.Durations, 1)
	assert.Equal(t, []float64{0, 300}, res.Durations[0])
	assert.Equal(t, []float64{0, 4200}, res.Distances[0])
}

func TestMatrixUnreachableCells(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"sources_to_targets":[[{"time":null,"distance":null}]]}`)
	})

	res, err := r.Matrix(context.Background(), &types.MatrixRequest{
		Locations: testLocations,
		Profile:   "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, res.Durations[0])
}

func TestDirectionsValidation(t *testing.T) {
	r := New(router.Config{})
	_, err := r.Directions(context.Background(), &types.DirectionsRequest{Locations: testLocations[:1]})
	assert.Error(t, err)
}
