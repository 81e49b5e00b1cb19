package ports

import (
	"context"

	"github.com/geomoodmap/backend/internal/core/domain"
)

// EventPublisher delivers domain events to subscribers outside the process.
type EventPublisher interface {
	PublishMoodCreated(ctx context.Context, event domain.MoodCreated) error
}
