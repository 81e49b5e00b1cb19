package ports

import (
	"context"
	"time"

	"github.com/geomoodmap/backend/internal/core/domain"
)

// UserRepository persists users and their append-only mood history.
type UserRepository interface {
	// FindByEmail returns the user with its full mood history, or a domain.ErrNotFound error.
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	// CreateUser returns a domain.ErrConflict error when the email is taken.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	AppendMood(ctx context.Context, userID string, m domain.Mood) (domain.Mood, error)
	// MoodsBetween returns users holding at least one mood created in [start, end),
	// each with only those moods, newest first.
	MoodsBetween(ctx context.Context, start, end time.Time) ([]domain.User, error)
}
