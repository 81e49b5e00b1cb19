package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/geomoodmap/backend/internal/core/domain"
)

const multipartMemory = 8 << 20

type createMoodRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	TextContent string   `json:"textContent"`
	Rating      int      `json:"rating"`
	Lat         *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng         *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// CreateMood handles POST /moods with either a JSON body or a multipart form
// carrying an optional "picture" file. Text and rating ranges are checked by
// the domain.
func (h *Handler) CreateMood(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxPictureBytes+multipartMemory)

	var (
		req     createMoodRequest
		picture *domain.Picture
		err     error
	)
	if isMultipart(r) {
		req, picture, err = decodeMultipartMood(r)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			err = invalidBody(err)
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, validationError(err))
		return
	}

	mood, err := h.svc.CreateMood(r.Context(), domain.CreateMoodInput{
		Email:       req.Email,
		TextContent: req.TextContent,
		Rating:      req.Rating,
		Location:    domain.Location{Lat: *req.Lat, Lng: *req.Lng},
		Picture:     picture,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mood)
}

// TodaysMoods handles GET /moods/today
func (h *Handler) TodaysMoods(w http.ResponseWriter, r *http.Request) {
	moods, err := h.svc.TodaysMoods(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moods)
}

// TodaySummary handles GET /moods/today/summary
func (h *Handler) TodaySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.TodaySummary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func decodeMultipartMood(r *http.Request) (createMoodRequest, *domain.Picture, error) {
	var req createMoodRequest
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return req, nil, invalidBody(err)
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req.Email = r.FormValue("email")
	req.TextContent = r.FormValue("textContent")
	if raw := r.FormValue("rating"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, nil, domain.InvalidInput("rating must be an integer")
		}
		req.Rating = n
	}
	var err error
	if req.Lat, err = formFloat(r, "lat"); err != nil {
		return req, nil, err
	}
	if req.Lng, err = formFloat(r, "lng"); err != nil {
		return req, nil, err
	}

	file, _, err := r.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, invalidBody(err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxPictureBytes+1))
	if err != nil {
		return req, nil, fmt.Errorf("rest: read picture: %w", err)
	}
	pic, err := sniffPicture(data)
	if err != nil {
		return req, nil, err
	}
	return req, pic, nil
}

// sniffPicture derives the MIME type from the content, never from the client.
func sniffPicture(data []byte) (*domain.Picture, error) {
	if len(data) == 0 {
		return nil, domain.InvalidInput("picture is empty")
	}
	if len(data) > domain.MaxPictureBytes {
		return nil, domain.InvalidInput("picture must be at most 50MB")
	}
	mt := mimetype.Detect(data)
	for _, allowed := range []string{"image/jpeg", "image/png"} {
		if mt.Is(allowed) {
			return &domain.Picture{MimeType: allowed, Data: data}, nil
		}
	}
	return nil, domain.InvalidInput(fmt.Sprintf("picture must be image/jpeg or image/png, got %s", mt.String()))
}

func formFloat(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.InvalidInput(key + " must be a number")
	}
	return &f, nil
}

func invalidBody(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.InvalidInput("request body too large")
	}
	return domain.InvalidInput("invalid request body")
}

// validationError turns validator failures into a single InvalidInput message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.InvalidInput(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return domain.InvalidInput(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func jsonFieldName(field string) string {
	switch field {
	case "TextContent":
		return "textContent"
	case "Lat":
		return "lat"
	case "Lng":
		return "lng"
	}
	return strings.ToLower(field)
}
