package openweather

// oneCallResponse is the subset of the One Call 3.0 payload the mapper reads.
type oneCallResponse struct {
	Lat            float64         `json:"lat"`
	Lon            float64         `json:"lon"`
	Timezone       string          `json:"timezone"`
	TimezoneOffset int             `json:"timezone_offset"`
	Current        *currentWeather `json:"current"`
}

type currentWeather struct {
	Dt         int64              `json:"dt"`
	Temp       float64            `json:"temp"` // Kelvin
	FeelsLike  float64            `json:"feels_like"`
	Pressure   float64            `json:"pressure"`
	Humidity   float64            `json:"humidity"`
	Clouds     float64            `json:"clouds"`
	Visibility float64            `json:"visibility"`
	WindSpeed  float64            `json:"wind_speed"`
	WindDeg    float64            `json:"wind_deg"`
	Weather    []weatherCondition `json:"weather"`
}

type weatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}
