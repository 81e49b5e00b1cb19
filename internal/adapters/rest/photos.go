package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/geomoodmap/backend/internal/core/domain"
)

// GetPhoto handles GET /photos/{key}
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	if h.photos == nil {
		h.writeError(w, r, domain.NotFound("photo not found"))
		return
	}
	key := chi.URLParam(r, "key")
	pic, err := h.photos.Load(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", pic.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(pic.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pic.Data)
}
