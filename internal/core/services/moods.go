package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

// Analyzer scores the free-form signals of a mood.
type Analyzer interface {
	TextSentiment(ctx context.Context, text string) domain.AnalysisRating
	PictureSentiment(ctx context.Context, picture domain.Picture) domain.AnalysisRating
}

// EventQueue accepts mood events for asynchronous delivery.
type EventQueue interface {
	Submit(event domain.MoodCreated)
}

// MoodServiceOptions tunes the read side of MoodService.
type MoodServiceOptions struct {
	// LatestPerUser caps how many of a user's moods appear in today's list. Zero keeps all.
	LatestPerUser int
	// Location defines where a day starts. Defaults to time.Local.
	Location *time.Location
	Events   EventQueue
	Logger   *slog.Logger
}

// MoodService coordinates users, signal providers and persistence for mood entries.
type MoodService struct {
	repo     ports.UserRepository
	weather  ports.WeatherProvider
	analyzer Analyzer
	photos   ports.PhotoStore
	events   EventQueue

	latestPerUser int
	loc           *time.Location
	logger        *slog.Logger
	now           func() time.Time
}

// NewMoodService constructs a MoodService.
func NewMoodService(repo ports.UserRepository, weather ports.WeatherProvider, analyzer Analyzer, photos ports.PhotoStore, opts MoodServiceOptions) *MoodService {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MoodService{
		repo:          repo,
		weather:       weather,
		analyzer:      analyzer,
		photos:        photos,
		events:        opts.Events,
		latestPerUser: opts.LatestPerUser,
		loc:           loc,
		logger:        logger,
		now:           time.Now,
	}
}

// RegisterUser creates a user for the given email.
func (s *MoodService) RegisterUser(ctx context.Context, email string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, domain.InvalidInput("email is required")
	}

	now := s.now()
	u, err := s.repo.CreateUser(ctx, domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, domain.Conflict("user already exists")
		}
		return domain.User{}, fmt.Errorf("service: failed to create user: %w", err)
	}
	return u, nil
}

type signals struct {
	weather domain.WeatherObservation
	text    domain.AnalysisRating
	photo   *domain.AnalysisRating
}

// CreateMood scores and stores a new mood entry for the user owning in.Email.
func (s *MoodService) CreateMood(ctx context.Context, in domain.CreateMoodInput) (domain.Mood, error) {
	if err := in.Validate(); err != nil {
		return domain.Mood{}, err
	}

	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Mood{}, domain.NotFound("user not found")
		}
		return domain.Mood{}, fmt.Errorf("service: failed to load user: %w", err)
	}

	now := s.now()
	if domain.HasDuplicateWithinHour(user.MoodTimestamps(), now) {
		return domain.Mood{}, domain.Conflict("mood already posted in the last hour")
	}

	sig, err := s.gatherSignals(ctx, in)
	if err != nil {
		return domain.Mood{}, fmt.Errorf("service: signal gathering aborted: %w", err)
	}

	weatherRating := domain.EstimateWeatherRating(&sig.weather)
	rating, err := domain.NewMoodRating(sig.text, domain.AnalysisRating(in.Rating), weatherRating, sig.photo)
	if err != nil {
		return domain.Mood{}, err
	}

	mood := domain.Mood{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		TextContent: in.TextContent,
		UserRating:  in.Rating,
		Score:       rating.Total(),
		Location:    in.Location,
		Weather:     sig.weather,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.Picture != nil {
		ref, err := s.photos.Store(ctx, mood.ID, *in.Picture)
		if err != nil {
			return domain.Mood{}, fmt.Errorf("service: failed to store picture: %w", err)
		}
		mood.Picture = ref
	}

	stored, err := s.repo.AppendMood(ctx, user.ID, mood)
	if err != nil {
		s.discardPicture(ctx, mood)
		// %v: repository kinds must not surface as caller-facing conflicts.
		return domain.Mood{}, fmt.Errorf("service: failed to save mood: %v", err)
	}

	s.logger.InfoContext(ctx, "mood created",
		"mood_id", stored.ID,
		"user_id", stored.UserID,
		"rating", stored.Score,
		"weather", sig.weather.Condition,
	)

	if s.events != nil {
		s.events.Submit(domain.NewMoodCreated(stored))
	}
	return stored, nil
}

// discardPicture removes a picture stored for a mood that was never saved.
func (s *MoodService) discardPicture(ctx context.Context, mood domain.Mood) {
	if mood.Picture == "" {
		return
	}
	if err := s.photos.Delete(context.WithoutCancel(ctx), mood.Picture); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove orphaned picture",
			"mood_id", mood.ID, "ref", mood.Picture, "error", err)
	}
}

// gatherSignals fetches weather and sentiment concurrently. Provider failures
// degrade to fallback values; only cancellation of ctx aborts the join.
func (s *MoodService) gatherSignals(ctx context.Context, in domain.CreateMoodInput) (signals, error) {
	var sig signals
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		obs, err := s.weather.CurrentWeather(gctx, in.Location.Lat, in.Location.Lng)
		if err != nil {
			s.logger.WarnContext(gctx, "weather lookup failed, using unknown weather",
				"lat", in.Location.Lat, "lng", in.Location.Lng, "error", err)
			obs = domain.UnknownWeather()
		}
		sig.weather = obs
		return ctx.Err()
	})

	g.Go(func() error {
		sig.text = s.analyzer.TextSentiment(gctx, in.TextContent)
		return ctx.Err()
	})

	if in.Picture != nil {
		pic := *in.Picture
		g.Go(func() error {
			r := s.analyzer.PictureSentiment(gctx, pic)
			sig.photo = &r
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return signals{}, err
	}
	return sig, nil
}

// TodaysMoods lists the moods created since local midnight, newest first.
func (s *MoodService) TodaysMoods(ctx context.Context) ([]domain.Mood, error) {
	start, end := domain.DayBounds(s.now(), s.loc)
	return s.moodsBetween(ctx, start, end)
}

func (s *MoodService) moodsBetween(ctx context.Context, start, end time.Time) ([]domain.Mood, error) {
	users, err := s.repo.MoodsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list moods: %w", err)
	}

	moods := make([]domain.Mood, 0, len(users))
	for _, u := range users {
		moods = append(moods, u.LatestMoods(s.latestPerUser)...)
	}
	sort.SliceStable(moods, func(i, j int) bool {
		return moods[i].CreatedAt.After(moods[j].CreatedAt)
	})
	return moods, nil
}

// TodaySummary aggregates the scores of TodaysMoods.
func (s *MoodService) TodaySummary(ctx context.Context) (domain.MoodSummary, error) {
	start, end := domain.DayBounds(s.now(), s.loc)
	moods, err := s.moodsBetween(ctx, start, end)
	if err != nil {
		return domain.MoodSummary{}, err
	}

	summary := domain.MoodSummary{From: start, To: end, Count: len(moods)}
	if len(moods) == 0 {
		return summary, nil
	}

	scores := make(stats.Float64Data, 0, len(moods))
	for _, m := range moods {
		scores = append(scores, m.Score)
	}
	if summary.Mean, err = stats.Mean(scores); err != nil {
		return domain.MoodSummary{}, fmt.Errorf("service: mean: %w", err)
	}
	if summary.Median, err = stats.Median(scores); err != nil {
		return domain.MoodSummary{}, fmt.Errorf("service: median: %w", err)
	}
	if summary.Min, err = stats.Min(scores); err != nil {
		return domain.MoodSummary{}, fmt.Errorf("service: min: %w", err)
	}
	if summary.Max, err = stats.Max(scores); err != nil {
		return domain.MoodSummary{}, fmt.Errorf("service: max: %w", err)
	}
	return summary, nil
}
