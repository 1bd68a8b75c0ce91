package routingpy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
)

func TestNewDispatchesByName(t *testing.T) {
	r, err := New("osrm", router.Config{})
	require.NoError(t, err)
	assert.Equal(t, "osrm", r.Name())

	_, err = New("unknown", router.Config{})
	require.Error(t, err)
}

func TestListContainsAllRouters(t *testing.T) {
	assert.GreaterOrEqual(t, len(List()), 9)
}

func TestRouterInterfaceIsUsable(t *testing.T) {
	r, err := New("valhalla", router.Config{})
	require.NoError(t, err)

	// Validation runs before any network I/O.
	_, err = r.Directions(context.Background(), &types.DirectionsRequest{
		Locations: []types.Coordinate{{Lon: 8.34, Lat: 48.23}},
		Profile:   "auto",
	})
	require.Error(t, err)
}
