// Package resilience guards outbound provider calls with circuit breakers.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

// ErrCircuitOpen is returned while a breaker rejects calls.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts are cleared. Zero never clears.
	Interval time.Duration
	// Timeout spent open before probing again.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that trips the breaker.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns conservative settings for third-party APIs.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// NewBreaker builds a named breaker that logs its state transitions.
func NewBreaker[T any](name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = DefaultBreakerConfig().FailureThreshold
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	v, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return v, fmt.Errorf("%w: %s", ErrCircuitOpen, cb.Name())
	}
	return v, err
}

// Weather wraps a WeatherProvider with a breaker.
type Weather struct {
	next ports.WeatherProvider
	cb   *gobreaker.CircuitBreaker[domain.WeatherObservation]
}

var _ ports.WeatherProvider = (*Weather)(nil)

func NewWeather(next ports.WeatherProvider, cfg BreakerConfig, logger *slog.Logger) *Weather {
	return &Weather{next: next, cb: NewBreaker[domain.WeatherObservation]("weather", cfg, logger)}
}

func (w *Weather) CurrentWeather(ctx context.Context, lat, lng float64) (domain.WeatherObservation, error) {
	return execute(w.cb, func() (domain.WeatherObservation, error) {
		return w.next.CurrentWeather(ctx, lat, lng)
	})
}

// LanguageModel wraps a LanguageModel with a breaker shared by text and image calls.
type LanguageModel struct {
	next ports.LanguageModel
	cb   *gobreaker.CircuitBreaker[string]
}

var _ ports.LanguageModel = (*LanguageModel)(nil)

func NewLanguageModel(next ports.LanguageModel, cfg BreakerConfig, logger *slog.Logger) *LanguageModel {
	return &LanguageModel{next: next, cb: NewBreaker[string]("llm", cfg, logger)}
}

func (l *LanguageModel) Complete(ctx context.Context, prompt string) (string, error) {
	return execute(l.cb, func() (string, error) {
		return l.next.Complete(ctx, prompt)
	})
}

func (l *LanguageModel) CompleteWithImage(ctx context.Context, prompt string, picture domain.Picture) (string, error) {
	return execute(l.cb, func() (string, error) {
		return l.next.CompleteWithImage(ctx, prompt, picture)
	})
}
