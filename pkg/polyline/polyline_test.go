package polyline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Google's reference path.
var googlePath = []Coordinate{
	{Lat: 38.5, Lon: -120.2},
	{Lat: 40.7, Lon: -120.95},
	{Lat: 43.252, Lon: -126.453},
}

const googleEncoded = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		coords   []Coordinate
		expected string
	}{
		{name: "empty", coords: nil, expected: ""},
		{name: "single point", coords: googlePath[:1], expected: "_p~iF~ps|U"},
		{name: "two points", coords: googlePath[:2], expected: "_p~iF~ps|U_ulLnnqC"},
		{name: "reference path", coords: googlePath, expected: googleEncoded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.coords))
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("reference path", func(t *testing.T) {
		coords := Decode(googleEncoded)
		require.Len(t, coords, len(googlePath))
		for i := range coords {
			assert.InDelta(t, googlePath[i].Lat, coords[i].Lat, 1e-5)
			assert.InDelta(t, googlePath[i].Lon, coords[i].Lon, 1e-5)
		}
	})

	t.Run("empty string", func(t *testing.T) {
		assert.Nil(t, Decode(""))
	})

	t.Run("truncated pair is dropped", func(t *testing.T) {
		coords := Decode("_p~iF~ps|U_ulL")
		require.Len(t, coords, 1)
		assert.InDelta(t, 38.5, coords[0].Lat, 1e-5)
	})
}

func TestRoundTrip_CityPath(t *testing.T) {
	path := []Coordinate{
		{Lat: 55.75583, Lon: 37.61730},
		{Lat: 56.32867, Lon: 44.00205},
		{Lat: 55.79612, Lon: 49.10641},
		{Lat: -33.86882, Lon: 151.20930},
	}

	decoded := Decode(Encode(path))
	require.Len(t, decoded, len(path))
	for i := range path {
		assert.InDelta(t, path[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, path[i].Lon, decoded[i].Lon, 1e-5)
	}
}

func TestLength(t *testing.T) {
	assert.Zero(t, Length(nil))
	assert.Zero(t, Length(googlePath[:1]))

	// Moscow to Saint Petersburg, roughly 634 km.
	moscowSpb := []Coordinate{{Lat: 55.7558, Lon: 37.6173}, {Lat: 59.9311, Lon: 30.3609}}
	assert.InDelta(t, 634000, Length(moscowSpb), 5000)

	// Length is the sum of the legs.
	legs := Distance(googlePath[0], googlePath[1]) + Distance(googlePath[1], googlePath[2])
	assert.InDelta(t, legs, Length(googlePath), 1e-6)
}

func TestDistance_SamePoint(t *testing.T) {
	assert.Zero(t, Distance(googlePath[0], googlePath[0]))
}

func TestBounds(t *testing.T) {
	_, _, ok := Bounds(nil)
	assert.False(t, ok)

	sw, ne, ok := Bounds(googlePath)
	require.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 38.5, Lon: -126.453}, sw)
	assert.Equal(t, Coordinate{Lat: 43.252, Lon: -120.2}, ne)
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Encode(googlePath)
	}
}
