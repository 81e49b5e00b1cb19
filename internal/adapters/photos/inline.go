// Package photos provides picture stores for mood entries.
package photos

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

var _ ports.PhotoStore = (*InlineStore)(nil)

// InlineStore embeds the picture in its reference as a base64 data URI,
// so nothing is written outside the mood row.
type InlineStore struct{}

func NewInlineStore() *InlineStore {
	return &InlineStore{}
}

func (s *InlineStore) Store(ctx context.Context, key string, picture domain.Picture) (string, error) {
	if len(picture.Data) == 0 {
		return "", fmt.Errorf("photos: empty picture")
	}
	return "data:" + picture.MimeType + ";base64," + base64.StdEncoding.EncodeToString(picture.Data), nil
}

// Delete is a no-op: inline pictures live and die with their mood row.
func (s *InlineStore) Delete(ctx context.Context, ref string) error {
	return nil
}

func (s *InlineStore) Load(ctx context.Context, ref string) (domain.Picture, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return domain.Picture{}, domain.NotFound("photo not found")
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return domain.Picture{}, fmt.Errorf("photos: malformed data uri")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return domain.Picture{}, fmt.Errorf("photos: decode data uri: %w", err)
	}
	return domain.Picture{MimeType: mime, Data: data}, nil
}
