package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/geomoodmap/backend/internal/adapters/ollama"
	"github.com/geomoodmap/backend/internal/adapters/openweather"
	"github.com/geomoodmap/backend/internal/adapters/photos"
	"github.com/geomoodmap/backend/internal/adapters/postgres"
	"github.com/geomoodmap/backend/internal/adapters/rabbitmq"
	"github.com/geomoodmap/backend/internal/adapters/rest"
	"github.com/geomoodmap/backend/internal/adapters/sqlite"
	"github.com/geomoodmap/backend/internal/config"
	"github.com/geomoodmap/backend/internal/core/ports"
	"github.com/geomoodmap/backend/internal/core/services"
	"github.com/geomoodmap/backend/internal/logging"
	"github.com/geomoodmap/backend/internal/resilience"
	"github.com/geomoodmap/backend/internal/worker"
)

// app holds the wired adapters. Closers run in reverse order.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	svc     *services.MoodService
	handler *rest.Handler
	closers []func() error
}

func newApp(ctx context.Context, configPath string) (_ *app, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: cfg, logger: logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// -- Database Adapter
	var repo ports.UserRepository
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.NewAdapter(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo = db
		a.closers = append(a.closers, db.Close)
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Storage.PostgresDSN, cfg.Storage.MaxConns)
		if err != nil {
			return nil, err
		}
		repo = db
		a.closers = append(a.closers, db.Close)
	}

	// -- Signal providers
	var weather ports.WeatherProvider = openweather.NewClient(nil, openweather.Config{
		BaseURL:      cfg.Weather.BaseURL,
		APIKey:       cfg.Weather.APIKey,
		Timeout:      cfg.Weather.Timeout,
		MaxRetries:   cfg.Weather.MaxRetries,
		RetryBackoff: cfg.Weather.RetryBackoff,
	}, a.logger)
	var llm ports.LanguageModel = ollama.NewClient(ollama.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout,
	})
	if cfg.Breaker.Enabled {
		bc := resilience.BreakerConfig{
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		}
		weather = resilience.NewWeather(weather, bc, a.logger)
		llm = resilience.NewLanguageModel(llm, bc, a.logger)
	}

	// -- Photo store
	var photoStore ports.PhotoStore
	switch cfg.Photos.Driver {
	case "inline":
		photoStore = photos.NewInlineStore()
	case "redis":
		opts, err := redis.ParseURL(cfg.Photos.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("photos.redis_url: %w", err)
		}
		store := photos.NewRedisStore(redis.NewClient(opts), cfg.Photos.TTL)
		a.closers = append(a.closers, store.Close)
		photoStore = store
	}

	// -- Events
	var events services.EventQueue
	if cfg.Events.Enabled {
		pub, err := rabbitmq.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)

		pool := worker.NewPool(pub, cfg.Events.Workers, cfg.Events.QueueSize, a.logger)
		pool.Start()
		a.closers = append(a.closers, func() error { pool.Stop(); return nil })
		events = pool
	}

	loc, err := cfg.Moods.Location()
	if err != nil {
		return nil, err
	}

	analyzer := services.NewSentimentAnalyzer(llm, a.logger)
	a.svc = services.NewMoodService(repo, weather, analyzer, photoStore, services.MoodServiceOptions{
		LatestPerUser: cfg.Moods.LatestPerUser,
		Location:      loc,
		Events:        events,
		Logger:        a.logger,
	})
	a.handler = rest.NewHandler(a.svc, photoStore, a.logger)
	return a, nil
}

// Close releases adapters, draining the event pool before its publisher.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
