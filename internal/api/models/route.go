package models

// RouteEvaluateRequest is the body of POST /v1/routes:evaluate.
type RouteEvaluateRequest struct {
	StartCity          string   `json:"startCity"`
	EndCity            string   `json:"endCity"`
	IntermediateCities []string `json:"intermediateCities,omitempty"`
	Metric             string   `json:"metric,omitempty"`
	Days               int      `json:"days,omitempty"`
	Locale             string   `json:"locale,omitempty"`
}

// RouteEvaluateResponse is the evaluation of every city on the route.
type RouteEvaluateResponse struct {
	GeneratedAt    Timestamp      `json:"generatedAt"`
	Metric         string         `json:"metric"`
	MetricLabel    string         `json:"metricLabel"`
	Days           int            `json:"days"`
	Locale         string         `json:"locale"`
	Polyline       string         `json:"polyline"`
	DistanceMeters int            `json:"distanceMeters"`
	Bounds         *Bounds        `json:"bounds,omitempty"`
	Succeeded      int            `json:"succeeded"`
	Failed         int            `json:"failed"`
	Empty          bool           `json:"empty"`
	Message        *string        `json:"message,omitempty"`
	Cities         []CityForecast `json:"cities"`
}

// CityForecast is one route stop. Assessment and Current are absent when
// Error is set; Location may be present either way.
type CityForecast struct {
	Index           int                `json:"index"`
	City            string             `json:"city"`
	Location        *CityLocation      `json:"location,omitempty"`
	Assessment      *string            `json:"assessment,omitempty"`
	AssessmentLabel *string            `json:"assessmentLabel,omitempty"`
	Favorable       *bool              `json:"favorable,omitempty"`
	Current         *CurrentConditions `json:"current,omitempty"`
	ChartTitle      string             `json:"chartTitle"`
	Series          []SeriesPoint      `json:"series"`
	Error           *CityError         `json:"error,omitempty"`
}

// CityLocation is the provider's match for a city name.
type CityLocation struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Point Point  `json:"point"`
}

// CurrentConditions are the day-0 metrics behind the assessment.
type CurrentConditions struct {
	TemperatureC             float64 `json:"temperatureC"`
	WindSpeedKmh             float64 `json:"windSpeedKmh"`
	PrecipitationProbability float64 `json:"precipitationProbability"`
	HasPrecipitation         bool    `json:"hasPrecipitation"`
}

// SeriesPoint is one chart point.
type SeriesPoint struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

// CityError explains why a city could not be evaluated.
type CityError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
