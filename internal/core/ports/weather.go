package ports

import (
	"context"

	"github.com/geomoodmap/backend/internal/core/domain"
)

// WeatherProvider returns the current observation at a coordinate.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, lat, lng float64) (domain.WeatherObservation, error)
}
