package osrm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khamaileon/routingpy/internal/geom"
	"github.com/khamaileon/routingpy/pkg/errors"
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
	shape := geom.EncodePolyline5(testLocations)
	var gotPath, gotQuery string

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotQuery = req.URL.RawQuery
		fmt.Fprintf(w, `{"code":"Ok","routes":[{"distance":1200.5,"duration":240.3,"geometry":%q}]}`, shape)
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations,
		Profile:   "driving",
		Options:   &DirectionsOptions{Overview: "full", Steps: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "/route/v1/driving/8.681495,49.41461;8.687872,49.420318", gotPath)
	assert.Contains(t, gotQuery, "overview=full")
	assert.Contains(t, gotQuery, "steps=true")
	assert.Contains(t, gotQuery, "geometries=polyline")

	require.Len(t, res.Routes, 1)
	route := res.First()
	assert.Equal(t, 1200, route.Distance)
	assert.Equal(t, 240, route.Duration)
	require.Len(t, route.Geometry, 2)
	assert.InDelta(t, 8.681495, route.Geometry[0].Lon, 1e-5)
	assert.InDelta(t, 49.41461, route.Geometry[0].Lat, 1e-5)
}

func TestDirectionsGeoJSONGeometry(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "geojson", req.URL.Query().Get("geometries"))
		fmt.Fprint(w, `{"routes":[{"distance":100,"duration":50,"geometry":{"type":"LineString","coordinates":[[8.68,49.41],[8.69,49.42]]}}]}`)
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations,
		Profile:   "driving",
		Options:   &DirectionsOptions{Geometries: GeometryGeoJSON},
	})
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)
	assert.Equal(t, []types.Coordinate{{Lon: 8.68, Lat: 49.41}, {Lon: 8.69, Lat: 49.42}}, res.First().Geometry)
}

func TestDirectionsAlternatives(t *testing.T) {
	shape := geom.EncodePolyline5(testLocations)
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "2", req.URL.Query().Get("alternatives"))
		fmt.Fprintf(w, `{"routes":[{"distance":1,"duration":1,"geometry":%q},{"distance":2,"duration":2,"geometry":%q}]}`, shape, shape)
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations,
		Profile:   "driving",
		Options:   &DirectionsOptions{Alternatives: 2},
	})
	require.NoError(t, err)
	assert.Len(t, res.Routes, 2)
}

func TestDirectionsValidation(t *testing.T) {
	r := New(router.Config{})

	_, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations[:1],
	})
	assert.Error(t, err)

	_, err = r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations,
		Options:   &MatrixOptions{},
	})
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotQuery = req.URL.Query()
		fmt.Fprint(w, `{"durations":[[0,120],[130,0]],"distances":[[0,1500],[1600,0]]}`)
	})

	res, err := r.Matrix(context.Background(), &types.MatrixRequest{
		Locations: testLocations,
		Profile:   "driving",
		Sources:   []int{0},
	})
	require.NoError(t, err)

	assert.Equal(t, "/table/v1/driving/8.681495,49.41461;8.687872,49.420318", gotPath)
	assert.Equal(t, []string{"0"}, gotQuery["sources"])
	assert.Equal(t, []string{"duration,distance"}, gotQuery["annotations"])

	assert.Equal(t, [][]float64{{0, 120}, {130, 0}}, res.Durations)
	assert.Equal(t, [][]float64{{0, 1500}, {1600, 0}}, res.Distances)
}

func TestIsochronesNotSupported(t *testing.T) {
	r := New(router.Config{})
	_, err := r.Isochrones(context.Background(), &types.IsochronesRequest{})
	assert.True(t, stderrors.Is(err, errors.ErrNotSupported))
}

func TestDirectionsDryRun(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("dry run must not hit the server")
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: testLocations,
		Profile:   "driving",
		DryRun:    true,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Routes)
	assert.Nil(t, res.First())
}
