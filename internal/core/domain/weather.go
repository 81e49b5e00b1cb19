package domain

import "strings"

const UnknownCondition = "Unknown"

// WeatherObservation is a normalized weather snapshot. Temperature is in Celsius.
type WeatherObservation struct {
	Condition    string  `json:"condition"`
	TemperatureC float64 `json:"temperature"`
	CloudCover   float64 `json:"clouds"`
	WindSpeed    float64 `json:"windSpeed"`
	Humidity     float64 `json:"humidity"`
	Pressure     float64 `json:"pressure"`
}

// UnknownWeather is the neutral observation used when no provider data is available.
func UnknownWeather() WeatherObservation {
	return WeatherObservation{Condition: UnknownCondition}
}

// IsUnknown reports whether the observation carries no usable data.
func (w WeatherObservation) IsUnknown() bool {
	condition := strings.TrimSpace(w.Condition)
	return (condition == "" || strings.EqualFold(condition, UnknownCondition)) &&
		w.TemperatureC == 0 &&
		w.CloudCover == 0 &&
		w.WindSpeed == 0 &&
		w.Humidity == 0 &&
		w.Pressure == 0
}

// KelvinToCelsius converts a provider temperature to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - 273.15
}

// EstimateWeatherRating maps an observation to how pleasant the weather is on a 1-5 scale.
// Missing data is neutral without applying any adjustment.
func EstimateWeatherRating(obs *WeatherObservation) AnalysisRating {
	if obs == nil || obs.IsUnknown() {
		return NeutralRating
	}

	score := 3.0

	switch t := obs.TemperatureC; {
	case t >= 18 && t <= 25:
		score++
	case t < 10 || t > 30:
		score--
	}

	switch {
	case obs.CloudCover < 20:
		score++
	case obs.CloudCover > 80:
		score--
	}

	switch strings.ToLower(strings.TrimSpace(obs.Condition)) {
	case "clear":
		score += 0.5
	case "rain":
		score -= 1
	case "thunderstorm":
		score -= 1.5
	case "snow":
		score -= 0.5
	}

	if obs.WindSpeed > 10 {
		score -= 0.5
	}

	return clampRating(score)
}
