// Package geom decodes and encodes the polyline geometries routing services
// exchange. All functions return coordinates in lon/lat order regardless of
// the lat/lng order used on the wire.
package geom

import (
	"github.com/twpayne/go-polyline"

	"github.com/khamaileon/routingpy/pkg/types"
)

var (
	codec5 = polyline.Codec{Dim: 2, Scale: 1e5}
	codec6 = polyline.Codec{Dim: 2, Scale: 1e6}

	// Graphhopper encodes elevation as a third dimension scaled by 100.
	// The codec divides every dimension by its single scale, so the
	// elevation axis needs a correction factor of 1e5/100 after decode.
	codec3d       = polyline.Codec{Dim: 3, Scale: 1e5}
	elevationceil = 1000.0
)

// DecodePolyline5 decodes a precision-5 polyline (OSRM default, Google,
// Graphhopper without elevation).
func DecodePolyline5(s string) ([]types.Coordinate, error) {
	return decode(codec5, s)
}

// DecodePolyline6 decodes a precision-6 polyline (Valhalla, OSRM polyline6).
func DecodePolyline6(s string) ([]types.Coordinate, error) {
	return decode(codec6, s)
}

// DecodePolyline5Elevation decodes a precision-5 polyline carrying a third
// elevation component (Graphhopper with elevation=true).
func DecodePolyline5Elevation(s string) ([]types.Coordinate, error) {
	raw, _, err := codec3d.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	coords := make([]types.Coordinate, len(raw))
	for i, c := range raw {
		coords[i] = types.Coordinate{Lon: c[1], Lat: c[0], Ele: c[2] * elevationceil}
	}
	return coords, nil
}

// EncodePolyline5 encodes coordinates as a precision-5 polyline.
func EncodePolyline5(coords []types.Coordinate) string {
	return encode(codec5, coords)
}

// EncodePolyline6 encodes coordinates as a precision-6 polyline.
func EncodePolyline6(coords []types.Coordinate) string {
	return encode(codec6, coords)
}

func decode(c polyline.Codec, s string) ([]types.Coordinate, error) {
	raw, _, err := c.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	coords := make([]types.Coordinate, len(raw))
	for i, p := range raw {
		coords[i] = types.Coordinate{Lon: p[1], Lat: p[0]}
	}
	return coords, nil
}

func encode(c polyline.Codec, coords []types.Coordinate) string {
	raw := make([][]float64, len(coords))
	for i, p := range coords {
		raw[i] = []float64{p.Lat, p.Lon}
	}
	return string(c.EncodeCoords(nil, raw))
}
