package forecast

// Extract normalizes one forecast day. Wind speed, precipitation probability and
// the precipitation flag fall back to their defaults when absent; a missing
// temperature has no default and yields ErrData.
func Extract(day ForecastDay) (Metrics, error) {
	temp, ok := temperatureC(day)
	if !ok {
		return Metrics{}, &Error{
			Code:    "MISSING_TEMPERATURE",
			Message: "forecast day has no metric temperature",
			Err:     ErrData,
		}
	}

	return Metrics{
		Temperature:              temp,
		WindSpeed:                windSpeedKmh(day),
		PrecipitationProbability: precipitationProbability(day),
		HasPrecipitation:         hasPrecipitation(day),
	}, nil
}

// temperatureC reads Temperature.Metric.Value. No default.
func temperatureC(day ForecastDay) (float64, bool) {
	if day.Temperature == nil || day.Temperature.Metric == nil || day.Temperature.Metric.Value == nil {
		return 0, false
	}
	return *day.Temperature.Metric.Value, true
}

// windSpeedKmh reads Wind.Speed.Metric.Value, defaulting to 0.
func windSpeedKmh(day ForecastDay) float64 {
	if day.Wind == nil || day.Wind.Speed == nil || day.Wind.Speed.Metric == nil || day.Wind.Speed.Metric.Value == nil {
		return 0
	}
	return *day.Wind.Speed.Metric.Value
}

// precipitationProbability reads PrecipitationProbability, defaulting to 0.
func precipitationProbability(day ForecastDay) float64 {
	if day.PrecipitationProbability == nil {
		return 0
	}
	return *day.PrecipitationProbability
}

// hasPrecipitation reads HasPrecipitation, defaulting to false.
func hasPrecipitation(day ForecastDay) bool {
	if day.HasPrecipitation == nil {
		return false
	}
	return *day.HasPrecipitation
}
