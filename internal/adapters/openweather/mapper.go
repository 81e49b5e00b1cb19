package openweather

import "github.com/geomoodmap/backend/internal/core/domain"

// mapToDomain normalizes a provider payload. A payload without current
// conditions maps to the unknown observation.
func mapToDomain(r oneCallResponse) domain.WeatherObservation {
	if r.Current == nil {
		return domain.UnknownWeather()
	}
	c := r.Current

	condition := domain.UnknownCondition
	if len(c.Weather) > 0 && c.Weather[0].Main != "" {
		condition = c.Weather[0].Main
	}

	return domain.WeatherObservation{
		Condition:    condition,
		TemperatureC: domain.KelvinToCelsius(c.Temp),
		CloudCover:   c.Clouds,
		WindSpeed:    c.WindSpeed,
		Humidity:     c.Humidity,
		Pressure:     c.Pressure,
	}
}
