package ports

import (
	"context"

	"github.com/geomoodmap/backend/internal/core/domain"
)

// LanguageModel sends prompts to a generative model and returns its raw text reply.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImage(ctx context.Context, prompt string, picture domain.Picture) (string, error)
}
