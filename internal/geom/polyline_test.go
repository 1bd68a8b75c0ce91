package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khamaileon/routingpy/pkg/types"
)

// The canonical polyline example from the Google encoding reference.
const googleExample = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestDecodePolyline5(t *testing.T) {
	coords, err := DecodePolyline5(googleExample)
	require.NoError(t, err)
	require.Len(t, coords, 3)

	assert.InDelta(t, -120.2, coords[0].Lon, 1e-5)
	assert.InDelta(t, 38.5, coords[0].Lat, 1e-5)
	assert.InDelta(t, -126.453, coords[2].Lon, 1e-5)
	assert.InDelta(t, 43.252, coords[2].Lat, 1e-5)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	coords := []types.Coordinate{
		{Lon: 8.681495, Lat: 49.41461},
		{Lon: 8.686507, Lat: 49.41943},
		{Lon: 8.687872, Lat: 49.420318},
	}

	t.Run("precision 5", func(t *testing.T) {
		decoded, err := DecodePolyline5(EncodePolyline5(coords))
		require.NoError(t, err)
		require.Len(t, decoded, len(coords))
		for i := range coords {
			assert.InDelta(t, coords[i].Lon, decoded[i].Lon, 1e-5)
			assert.InDelta(t, coords[i].Lat, decoded[i].Lat, 1e-5)
		}
	})

	t.Run("precision 6", func(t *testing.T) {
		decoded, err := DecodePolyline6(EncodePolyline6(coords))
		require.NoError(t, err)
		require.Len(t, decoded, len(coords))
		for i := range coords {
			assert.InDelta(t, coords[i].Lon, decoded[i].Lon, 1e-6)
			assert.InDelta(t, coords[i].Lat, decoded[i].Lat, 1e-6)
		}
	})
}

func TestDecodePolyline5Elevation(t *testing.T) {
	// Elevation travels at scale 100 while lat/lon use 1e5, so an
	// altitude of 512.3m sits on the wire as the integer 51230. Encoding
	// 0.5123 with the shared codec produces exactly that integer.
	encoded := codec3d.EncodeCoords(nil, [][]float64{
		{49.41461, 8.681495, 0.5123},
		{49.41943, 8.686507, 0.6018},
	})

	coords, err := DecodePolyline5Elevation(string(encoded))
	require.NoError(t, err)
	require.Len(t, coords, 2)

	assert.InDelta(t, 8.681495, coords[0].Lon, 1e-5)
	assert.InDelta(t, 49.41461, coords[0].Lat, 1e-5)
	assert.InDelta(t, 512.3, coords[0].Ele, 1e-2)
	assert.InDelta(t, 601.8, coords[1].Ele, 1e-2)
}

func TestDecodeInvalidPolyline(t *testing.T) {
	_, err := DecodePolyline5("\x1f")
	assert.Error(t, err)
}
