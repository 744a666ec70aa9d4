package accuweather

import (
	"time"

	"github.com/routecast/routecast/internal/forecast"
)

// citySearchResult is one element of the city search response array.
type citySearchResult struct {
	Key           string       `json:"Key"`
	LocalizedName string       `json:"LocalizedName"`
	EnglishName   string       `json:"EnglishName"`
	GeoPosition   *geoPosition `json:"GeoPosition"`
}

type geoPosition struct {
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
}

// dailyForecastResponse is the daily forecast envelope.
type dailyForecastResponse struct {
	DailyForecasts []dailyForecast `json:"DailyForecasts"`
}

// dailyForecast mirrors one forecast record. Pointers distinguish absent
// fields from zero values.
type dailyForecast struct {
	Date                     time.Time    `json:"Date"`
	Temperature              *temperature `json:"Temperature"`
	Wind                     *wind        `json:"Wind"`
	PrecipitationProbability *float64     `json:"PrecipitationProbability"`
	HasPrecipitation         *bool        `json:"HasPrecipitation"`
}

type temperature struct {
	Metric *reading `json:"Metric"`
}

type wind struct {
	Speed *windSpeed `json:"Speed"`
}

type windSpeed struct {
	Metric *reading `json:"Metric"`
}

type reading struct {
	Value *float64 `json:"Value"`
	Unit  string   `json:"Unit"`
}

// toLocation converts a match. A match without GeoPosition cannot be placed
// on the map and yields nil.
func (r citySearchResult) toLocation() *forecast.Location {
	if r.GeoPosition == nil {
		return nil
	}
	loc := &forecast.Location{
		Key:  r.Key,
		Name: r.LocalizedName,
		Lat:  r.GeoPosition.Latitude,
		Lon:  r.GeoPosition.Longitude,
	}
	if loc.Name == "" {
		loc.Name = r.EnglishName
	}
	return loc
}

func (d dailyForecast) toForecastDay() forecast.ForecastDay {
	day := forecast.ForecastDay{
		Date:                     d.Date,
		PrecipitationProbability: d.PrecipitationProbability,
		HasPrecipitation:         d.HasPrecipitation,
	}
	if d.Temperature != nil {
		day.Temperature = &forecast.Temperature{Metric: d.Temperature.Metric.toReading()}
	}
	if d.Wind != nil {
		day.Wind = &forecast.Wind{}
		if d.Wind.Speed != nil {
			day.Wind.Speed = &forecast.WindSpeed{Metric: d.Wind.Speed.Metric.toReading()}
		}
	}
	return day
}

func (r *reading) toReading() *forecast.Reading {
	if r == nil {
		return nil
	}
	return &forecast.Reading{Value: r.Value, Unit: r.Unit}
}
