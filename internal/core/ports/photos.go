package ports

import (
	"context"

	"github.com/geomoodmap/backend/internal/core/domain"
)

// PhotoStore keeps mood pictures. The returned reference is what gets stored on the mood.
type PhotoStore interface {
	Store(ctx context.Context, key string, picture domain.Picture) (string, error)
	Load(ctx context.Context, ref string) (domain.Picture, error)
	// Delete removes the picture behind ref. Deleting a missing picture is not an error.
	Delete(ctx context.Context, ref string) error
}
