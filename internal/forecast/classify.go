package forecast

// Assessment is the travel-condition verdict for a city's current day.
type Assessment string

const (
	Favorable                Assessment = "FAVORABLE"
	UnfavorableTemperature   Assessment = "UNFAVORABLE_TEMPERATURE"
	UnfavorableWind          Assessment = "UNFAVORABLE_WIND"
	UnfavorablePrecipitation Assessment = "UNFAVORABLE_PRECIPITATION"
)

// Classification thresholds. Bounds are exclusive.
const (
	MinTemperatureC              = 0.0
	MaxTemperatureC              = 35.0
	MaxWindSpeedKmh              = 50.0
	MaxPrecipitationProbabilityP = 70.0
)

// AllAssessments returns every verdict in rule order, Favorable last.
func AllAssessments() []Assessment {
	return []Assessment{UnfavorableTemperature, UnfavorableWind, UnfavorablePrecipitation, Favorable}
}

// Classify returns the verdict for m. Rules are checked in order and the first
// match wins: temperature, then wind, then precipitation.
func Classify(m Metrics) Assessment {
	switch {
	case m.Temperature < MinTemperatureC || m.Temperature > MaxTemperatureC:
		return UnfavorableTemperature
	case m.WindSpeed > MaxWindSpeedKmh:
		return UnfavorableWind
	case m.PrecipitationProbability > MaxPrecipitationProbabilityP || m.HasPrecipitation:
		return UnfavorablePrecipitation
	default:
		return Favorable
	}
}

// IsFavorable reports whether the verdict allows travel without a hazard warning.
func (a Assessment) IsFavorable() bool {
	return a == Favorable
}
