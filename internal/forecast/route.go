package forecast

import (
	"strings"
	"time"

	"github.com/routecast/routecast/pkg/polyline"
)

// RouteRequest describes one route evaluation. It is request-scoped and owns
// its city list.
type RouteRequest struct {
	Start        string
	Intermediate []string
	End          string

	Metric Metric   // Charted metric (default: temperature)
	Days   DayCount // Forecast window (default: 3)
	Locale Locale   // Label locale (default: en)
}

// Cities returns the stops in route order: start, intermediate stops, end.
// Blank names are skipped; duplicates are kept as distinct stops.
func (r RouteRequest) Cities() []string {
	cities := make([]string, 0, len(r.Intermediate)+2)
	add := func(name string) {
		if name = strings.TrimSpace(name); name != "" {
			cities = append(cities, name)
		}
	}

	add(r.Start)
	for _, c := range r.Intermediate {
		add(c)
	}
	add(r.End)

	return cities
}

// SeriesPoint is one chart point.
type SeriesPoint struct {
	Date  time.Time
	Value float64
}

// CityResult is the outcome of one city's pipeline. Err is nil on success;
// Location may be set even when the forecast fetch failed.
type CityResult struct {
	Index      int
	City       string
	Location   *Location
	Series     []SeriesPoint
	Metrics    *Metrics   // Day-0 metrics used for the verdict
	Assessment Assessment // Empty when Err is set
	Err        error
}

// OK reports whether the city was fully evaluated.
func (c CityResult) OK() bool {
	return c.Err == nil
}

// RouteEvaluation is the result of evaluating a route.
type RouteEvaluation struct {
	Metric Metric
	Days   DayCount
	Locale Locale

	// Cities holds one result per stop, in route order.
	Cities []CityResult

	// Polyline is the encoded path through every resolved city in route order.
	Polyline string

	// DistanceMeters is the great-circle length of the polyline.
	DistanceMeters float64

	Succeeded int
	Failed    int

	// Empty is set when the request named no cities.
	Empty bool

	GeneratedAt time.Time
}

// Coordinates returns the resolved coordinates in route order, skipping
// unresolved cities.
func (e *RouteEvaluation) Coordinates() []polyline.Coordinate {
	coords := make([]polyline.Coordinate, 0, len(e.Cities))
	for i := range e.Cities {
		if loc := e.Cities[i].Location; loc != nil {
			coords = append(coords, polyline.Coordinate{Lat: loc.Lat, Lon: loc.Lon})
		}
	}
	return coords
}
