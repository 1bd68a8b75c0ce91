package graphhopper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

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
	return New(router.Config{BaseURL: srv.URL, APIKey: "gh-key"})
}

func TestDirections(t *testing.T) {
	points := geom.EncodePolyline5(testLocations)
	var gotQuery url.Values

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/route", req.URL.Path)
		gotQuery = req.URL.Query()
		fmt.Fprintf(w, `{"paths":[{"distance":1450.2,"time":312000,"points":%q}]}`, points)
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations,
		Profile:   "car",
		Options:   &DirectionsOptions{Locale: "de", Instructions: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "gh-key", gotQuery.Get("key"))
	assert.Equal(t, "car", gotQuery.Get("profile"))
	// lat,lon order on the wire
	assert.Equal(t, []string{"49.41461,8.681495", "49.420318,8.687872"}, gotQuery["point"])
	assert.Equal(t, "de", gotQuery.Get("locale"))
	assert.Equal(t, "true", gotQuery.Get("instructions"))

	route := res.First()
	require.NotNil(t, route)
	assert.Equal(t, 1450, route.Distance)
	assert.Equal(t, 312, route.Duration) // ms -> s
	assert.Len(t, route.Geometry, 2)
}

func TestIsochronesBuckets(t *testing.T) {
	var gotQuery url.Values

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/isochrone", req.URL.Path)
		gotQuery = req.URL.Query()
		fmt.Fprint(w, `{"polygons":[
			{"properties":{"bucket":0},"geometry":{"type":"Polygon","coordinates":[[[8.6,49.4],[8.7,49.4],[8.6,49.4]]]}},
			{"properties":{"bucket":1},"geometry":{"type":"Polygon","coordinates":[[[8.5,49.3],[8.8,49.3],[8.5,49.3]]]}}
		]}`)
	})

	res, err := r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location:  testLocations[0],
		Profile:   "car",
		Intervals: []int{600},
		Options:   &IsochronesOptions{Buckets: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "600", gotQuery.Get("time_limit"))
	assert.Equal(t, "2", gotQuery.Get("buckets"))
	assert.Equal(t, "49.41461,8.681495", gotQuery.Get("point"))

	require.Len(t, res.Isochrones, 2)
	assert.Equal(t, 300, res.Isochrones[0].Interval)
	assert.Equal(t, 600, res.Isochrones[1].Interval)
}

func TestIsochronesRejectsMultipleIntervals(t *testing.T) {
	r := New(router.Config{})
	_, err := r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location:  testLocations[0],
		Intervals: []int{300, 600},
	})
	assert.Error(t, err)
}

func TestMatrixSourcesDestinations(t *testing.T) {
	var gotQuery url.Values

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/matrix", req.URL.Path)
		gotQuery = req.URL.Query()
		fmt.Fprint(w, `{"times":[[0,260]],"distances":[[0,1800]]}`)
	})

	res, err := r.Matrix(context.Background(), &types.MatrixRequest{
		Locations:    testLocations,
		Profile:      "car",
		Sources:      []int{0},
		Destinations: []int{0, 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"49.41461,8.681495"}, gotQuery["from_point"])
	assert.Len(t, gotQuery["to_point"], 2)
	assert.ElementsMatch(t, []string{"times", "distances"}, gotQuery["out_array"])

	assert.Equal(t, [][]float64{{0, 260}}, res.Durations)
	assert.Equal(t, [][]float64{{0, 1800}}, res.Distances)
}
