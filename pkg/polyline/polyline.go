// Package polyline encodes route paths with Google's polyline algorithm at
// five decimal places and measures them on the sphere.
// Format: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
)

const (
	precision         = 1e5
	earthRadiusMeters = 6371000
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Encode encodes coords in order. An empty path encodes to "".
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*8)
	var prevLat, prevLon int

	for _, c := range coords {
		lat := int(math.Round(c.Lat * precision))
		lon := int(math.Round(c.Lon * precision))

		buf = appendDelta(buf, lat-prevLat)
		buf = appendDelta(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

// appendDelta appends one zig-zag encoded value as 5-bit chunks.
func appendDelta(buf []byte, v int) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}

	for u >= 0x20 {
		buf = append(buf, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}

// Decode decodes an encoded path. A trailing incomplete pair is dropped.
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var (
		coords   []Coordinate
		lat, lon int
		pos      int
	)

	for pos < len(encoded) {
		dLat, next, ok := readDelta(encoded, pos)
		if !ok {
			break
		}
		dLon, next, ok := readDelta(encoded, next)
		if !ok {
			break
		}
		pos = next

		lat += dLat
		lon += dLon
		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords
}

// readDelta reads one value starting at pos and returns it with the next position.
func readDelta(encoded string, pos int) (int, int, bool) {
	var result, shift int
	for pos < len(encoded) {
		b := int(encoded[pos]) - 63
		pos++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), pos, true
			}
			return result >> 1, pos, true
		}
	}
	return 0, pos, false
}

// Length returns the great-circle length of the path in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	const rad = math.Pi / 180

	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Bounds returns the south-west and north-east corners enclosing coords.
// ok is false for an empty path.
func Bounds(coords []Coordinate) (sw, ne Coordinate, ok bool) {
	if len(coords) == 0 {
		return Coordinate{}, Coordinate{}, false
	}

	sw, ne = coords[0], coords[0]
	for _, c := range coords[1:] {
		sw.Lat = math.Min(sw.Lat, c.Lat)
		sw.Lon = math.Min(sw.Lon, c.Lon)
		ne.Lat = math.Max(ne.Lat, c.Lat)
		ne.Lon = math.Max(ne.Lon, c.Lon)
	}
	return sw, ne, true
}
