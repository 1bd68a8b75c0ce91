package heremaps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

func newTestRouter(t *testing.T, handler http.HandlerFunc) *Router {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := New(router.Config{BaseURL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return r
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(router.Config{})
	require.Error(t, err)

	_, err = New(router.Config{AppID: "id"})
	require.Error(t, err)

	_, err = New(router.Config{AppID: "id", AppCode: "code"})
	require.NoError(t, err)
}

func TestDirections(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "test-key", q.Get("apiKey"))
		assert.Equal(t, "geo!48.23424,8.34234", q.Get("waypoint0"))
		assert.Equal(t, "geo!48.65145,8.58232", q.Get("waypoint1"))
		assert.Equal(t, "fastest;car;traffic:disabled", q.Get("mode"))
		assert.Equal(t, "/calculateroute.json", req.URL.Path)

		w.Write([]byte(`{"response":{"route":[{
			"shape":["48.23424,8.34234","48.65145,8.58232"],
			"summary":{"travelTime":2345.5,"distance":18000.2}
		}]}}`))
	})

	res, err := r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: []types.Coordinate{
			{Lon: 8.34234, Lat: 48.23424},
			{Lon: 8.58232, Lat: 48.65145},
		},
		Profile: "car",
	})
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)

	route := res.First()
	assert.Equal(t, 2345, route.Duration)
	assert.Equal(t, 18000, route.Distance)
	require.Len(t, route.Geometry, 2)
	assert.InDelta(t, 8.34234, route.Geometry[0].Lon, 1e-9)
	assert.InDelta(t, 48.23424, route.Geometry[0].Lat, 1e-9)
}

func TestDirectionsDepartureArrivalExclusive(t *testing.T) {
	r, err := New(router.Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: []types.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}},
		Profile:   "car",
		Options: &DirectionsOptions{
			Departure: time.Now(),
			Arrival:   time.Now().Add(time.Hour),
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestWayPointParam(t *testing.T) {
	wp := WayPoint{Coord: types.Coordinate{Lon: 8.1, Lat: 48.5}}
	assert.Equal(t, "geo!48.5,8.1", wp.param())

	wp = WayPoint{
		Coord:            types.Coordinate{Lon: 8.1, Lat: 48.5},
		StopOverDuration: 300,
		TransitRadius:    500,
	}
	assert.Equal(t, "geo!stopOver,300!48.5,8.1;500", wp.param())
}

func TestRoutingModeParam(t *testing.T) {
	mode := RoutingMode{
		Type:          "shortest",
		TransportMode: "truck",
		Traffic:       true,
		Features:      map[string]int{"motorway": -2},
	}
	assert.Equal(t, "shortest;truck;traffic:enabled;motorway:-2", mode.param())
}

func TestMatrix(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "/calculatematrix.json", req.URL.Path)
		// Without explicit sources/destinations every location is both.
		assert.Equal(t, "geo!48.23424,8.34234", q.Get("start0"))
		assert.Equal(t, "geo!48.65145,8.58232", q.Get("start1"))
		assert.Equal(t, "geo!48.23424,8.34234", q.Get("destination0"))
		assert.Equal(t, "geo!48.65145,8.58232", q.Get("destination1"))
		assert.Equal(t, "traveltime,distance", q.Get("summaryAttributes"))

		w.Write([]byte(`{"response":{"matrixEntry":[
			{"startIndex":0,"destinationIndex":0,"summary":{"travelTime":0,"distance":0}},
			{"startIndex":0,"destinationIndex":1,"summary":{"travelTime":540,"distance":7000}},
			{"startIndex":1,"destinationIndex":0,"summary":{"travelTime":560,"distance":7100}},
			{"startIndex":1,"destinationIndex":1,"summary":{"travelTime":0,"distance":0}}
		]}}`))
	})

	res, err := r.Matrix(context.Background(), &types.MatrixRequest{
		Locations: []types.Coordinate{
			{Lon: 8.34234, Lat: 48.23424},
			{Lon: 8.58232, Lat: 48.65145},
		},
		Profile: "car",
	})
	require.NoError(t, err)
	require.Len(t, res.Durations, 2)
	assert.Equal(t, 540.0, res.Durations[0][1])
	assert.Equal(t, 7100.0, res.Distances[1][0])
}

func TestMatrixSourcesDestinations(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "geo!48.23424,8.34234", q.Get("start0"))
		assert.Empty(t, q.Get("start1"))
		assert.Equal(t, "geo!48.65145,8.58232", q.Get("destination0"))
		assert.Equal(t, "geo!48.99999,8.99999", q.Get("destination1"))

		w.Write([]byte(`{"response":{"matrixEntry":[
			{"startIndex":0,"destinationIndex":0,"summary":{"travelTime":540,"distance":7000}},
			{"startIndex":0,"destinationIndex":1,"summary":{"travelTime":900,"distance":12000}}
		]}}`))
	})

	res, err := r.Matrix(context.Background(), &types.MatrixRequest{
		Locations: []types.Coordinate{
			{Lon: 8.34234, Lat: 48.23424},
			{Lon: 8.58232, Lat: 48.65145},
			{Lon: 8.99999, Lat: 48.99999},
		},
		Profile:      "car",
		Sources:      []int{0},
		Destinations: []int{1, 2},
	})
	require.NoError(t, err)
	require.Len(t, res.Durations, 1)
	require.Len(t, res.Durations[0], 2)
	assert.Equal(t, 900.0, res.Durations[0][1])
}

func TestIsochrones(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "/calculateisoline.json", req.URL.Path)
		assert.Equal(t, "geo!48.23424,8.34234", q.Get("start"))
		assert.Equal(t, "600,1200", q.Get("range"))
		assert.Equal(t, "time", q.Get("rangetype"))

		w.Write([]byte(`{"response":{
			"center":{"latitude":48.23424,"longitude":8.34234},
			"isoline":[
				{"range":600,"component":[{"shape":["48.2,8.3","48.3,8.4","48.2,8.3"]}]},
				{"range":1200,"component":[{"shape":["48.1,8.2","48.4,8.5","48.1,8.2"]}]}
			]}}`))
	})

	res, err := r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location:  types.Coordinate{Lon: 8.34234, Lat: 48.23424},
		Profile:   "car",
		Intervals: []int{600, 1200},
	})
	require.NoError(t, err)
	require.Len(t, res.Isochrones, 2)
	assert.Equal(t, 600, res.Isochrones[0].Interval)
	assert.Equal(t, types.IntervalTime, res.Isochrones[0].IntervalType)
	assert.InDelta(t, 8.34234, res.Isochrones[0].Center.Lon, 1e-9)
	assert.Len(t, res.Isochrones[1].Geometry, 3)
}

func TestIsochronesRequiresIntervals(t *testing.T) {
	r, err := New(router.Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = r.Isochrones(context.Background(), &types.IsochronesRequest{
		Location: types.Coordinate{Lon: 8, Lat: 48},
		Profile:  "car",
	})
	require.Error(t, err)
}
