package rest

import (
	"encoding/json"
	"net/http"
)

type registerUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterUser handles POST /users
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, invalidBody(err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, validationError(err))
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}
