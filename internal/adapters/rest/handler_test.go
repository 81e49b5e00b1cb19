package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geomoodmap/backend/internal/adapters/sqlite"
	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/services"
)

// --- Mocks ---

// The handler depends on the concrete MoodService, so tests build a real
// service over an in-memory SQLite store and stub the remote collaborators.

type stubWeather struct {
	err error
}

func (s *stubWeather) CurrentWeather(ctx context.Context, lat, lng float64) (domain.WeatherObservation, error) {
	if s.err != nil {
		return domain.WeatherObservation{}, s.err
	}
	return domain.WeatherObservation{Condition: "Clear", TemperatureC: 22, CloudCover: 5, WindSpeed: 2, Humidity: 40, Pressure: 1016}, nil
}

type stubLLM struct {
	reply string
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, nil
}

func (s *stubLLM) CompleteWithImage(ctx context.Context, prompt string, picture domain.Picture) (string, error) {
	return s.reply, nil
}

type memPhotos struct {
	mu   sync.Mutex
	pics map[string]domain.Picture
}

func (m *memPhotos) Store(ctx context.Context, key string, picture domain.Picture) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pics[key] = picture
	return "/photos/" + key, nil
}

func (m *memPhotos) Load(ctx context.Context, ref string) (domain.Picture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pic, ok := m.pics[strings.TrimPrefix(ref, "/photos/")]
	if !ok {
		return domain.Picture{}, domain.NotFound("photo not found")
	}
	return pic, nil
}

func (m *memPhotos) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pics, strings.TrimPrefix(ref, "/photos/"))
	return nil
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type fixture struct {
	handler *Handler
	photos  *memPhotos
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := sqlite.NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	photos := &memPhotos{pics: map[string]domain.Picture{}}
	analyzer := services.NewSentimentAnalyzer(&stubLLM{reply: `{"score":4}`}, logger)
	svc := services.NewMoodService(repo, &stubWeather{}, analyzer, photos, services.MoodServiceOptions{
		LatestPerUser: 1,
		Location:      time.UTC,
		Logger:        logger,
	})
	return &fixture{handler: NewHandler(svc, photos, logger), photos: photos}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return f.do(t, req)
}

func (f *fixture) register(t *testing.T, email string) {
	t.Helper()
	if rr := f.postJSON(t, "/users", `{"email":"`+email+`"}`); rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rr.Code, rr.Body.String())
	}
}

func multipartMood(t *testing.T, fields map[string]string, picture []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if picture != nil {
		fw, err := mw.CreateFormFile("picture", "upload.bin")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(picture); err != nil {
			t.Fatalf("write picture: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/moods", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestRegisterUser(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ana@example.com")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "duplicate", body: `{"email":"ana@example.com"}`, wantStatus: http.StatusConflict, wantBody: "user already exists"},
		{name: "not an email", body: `{"email":"ana"}`, wantStatus: http.StatusBadRequest, wantBody: "email must be a valid email"},
		{name: "missing email", body: `{}`, wantStatus: http.StatusBadRequest, wantBody: "email is required"},
		{name: "bad json", body: `{"email":`, wantStatus: http.StatusBadRequest, wantBody: "invalid request body"},
		{name: "new user", body: `{"email":"bo@example.com"}`, wantStatus: http.StatusCreated, wantBody: `"email":"bo@example.com"`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rr := f.postJSON(t, "/users", tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d (body %s)", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tc.wantBody) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestCreateMood_JSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "created",
			body:       `{"email":"ana@example.com","textContent":"happy day","rating":4,"lat":48.85,"lng":2.35}`,
			wantStatus: http.StatusCreated,
			wantBody:   `"rating":`,
		},
		{
			name:       "unknown user",
			body:       `{"email":"ghost@example.com","textContent":"happy day","rating":4,"lat":48.85,"lng":2.35}`,
			wantStatus: http.StatusNotFound,
			wantBody:   "user not found",
		},
		{
			name:       "rating out of range",
			body:       `{"email":"ana@example.com","textContent":"happy day","rating":9,"lat":48.85,"lng":2.35}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "User rating must be between 1 and 5",
		},
		{
			name:       "missing latitude",
			body:       `{"email":"ana@example.com","textContent":"happy day","rating":4,"lng":2.35}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "lat is required",
		},
		{
			name:       "longitude out of range",
			body:       `{"email":"ana@example.com","textContent":"happy day","rating":4,"lat":0,"lng":200}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "lng must be at most 180",
		},
		{
			name:       "empty text",
			body:       `{"email":"ana@example.com","textContent":"","rating":4,"lat":0,"lng":0}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "textContent must be between 1 and 1000 characters",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.register(t, "ana@example.com")

			rr := f.postJSON(t, "/moods", tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d (body %s)", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tc.wantBody) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestCreateMood_DuplicateWithinHour(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ana@example.com")
	body := `{"email":"ana@example.com","textContent":"happy day","rating":4,"lat":48.85,"lng":2.35}`

	if rr := f.postJSON(t, "/moods", body); rr.Code != http.StatusCreated {
		t.Fatalf("first mood: status %d body %s", rr.Code, rr.Body.String())
	}
	rr := f.postJSON(t, "/moods", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("second mood: got %d want %d", rr.Code, http.StatusConflict)
	}
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "conflict" {
		t.Errorf("code: got %q", resp.Code)
	}
}

func TestCreateMood_Multipart(t *testing.T) {
	fields := map[string]string{
		"email":       "ana@example.com",
		"textContent": "smiling in the park",
		"rating":      "5",
		"lat":         "48.85",
		"lng":         "2.35",
	}

	t.Run("png picture is stored and served", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ana@example.com")

		rr := f.do(t, multipartMood(t, fields, pngBytes))
		if rr.Code != http.StatusCreated {
			t.Fatalf("status: got %d body %s", rr.Code, rr.Body.String())
		}
		var mood domain.Mood
		if err := json.NewDecoder(rr.Body).Decode(&mood); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if mood.Picture != "/photos/"+mood.ID {
			t.Fatalf("picture ref: got %q", mood.Picture)
		}

		photo := f.do(t, httptest.NewRequest(http.MethodGet, mood.Picture, nil))
		if photo.Code != http.StatusOK {
			t.Fatalf("photo status: got %d", photo.Code)
		}
		if ct := photo.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("content type: got %q", ct)
		}
		if !bytes.Equal(photo.Body.Bytes(), pngBytes) {
			t.Errorf("photo body mismatch")
		}
	})

	t.Run("no picture", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ana@example.com")

		rr := f.do(t, multipartMood(t, fields, nil))
		if rr.Code != http.StatusCreated {
			t.Fatalf("status: got %d body %s", rr.Code, rr.Body.String())
		}
		if strings.Contains(rr.Body.String(), `"picture"`) {
			t.Errorf("expected no picture in %s", rr.Body.String())
		}
	})

	t.Run("non image rejected", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "ana@example.com")

		rr := f.do(t, multipartMood(t, fields, []byte("just some text, not a picture")))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status: got %d want %d", rr.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rr.Body.String(), "picture must be image/jpeg or image/png") {
			t.Errorf("unexpected body: %s", rr.Body.String())
		}
		if len(f.photos.pics) != 0 {
			t.Errorf("expected nothing stored, got %d", len(f.photos.pics))
		}
	})

	t.Run("bad rating field", func(t *testing.T) {
		f := newFixture(t)
		bad := map[string]string{"email": "ana@example.com", "textContent": "x", "rating": "five", "lat": "1", "lng": "1"}

		rr := f.do(t, multipartMood(t, bad, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status: got %d want %d", rr.Code, http.StatusBadRequest)
		}
	})
}

func TestTodaysMoods(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ana@example.com")
	f.register(t, "bo@example.com")

	for _, email := range []string{"ana@example.com", "bo@example.com"} {
		body := `{"email":"` + email + `","textContent":"calm evening","rating":3,"lat":10,"lng":10}`
		if rr := f.postJSON(t, "/moods", body); rr.Code != http.StatusCreated {
			t.Fatalf("create mood for %s: %d %s", email, rr.Code, rr.Body.String())
		}
	}

	for _, path := range []string{"/moods", "/moods/today"} {
		t.Run(path, func(t *testing.T) {
			rr := f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d", rr.Code)
			}
			var moods []domain.Mood
			if err := json.NewDecoder(rr.Body).Decode(&moods); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(moods) != 2 {
				t.Fatalf("expected 2 moods, got %d", len(moods))
			}
		})
	}

	t.Run("summary", func(t *testing.T) {
		rr := f.do(t, httptest.NewRequest(http.MethodGet, "/moods/today/summary", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d", rr.Code)
		}
		var summary domain.MoodSummary
		if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if summary.Count != 2 {
			t.Errorf("count: got %d want 2", summary.Count)
		}
		if summary.Min > summary.Max {
			t.Errorf("min %v greater than max %v", summary.Min, summary.Max)
		}
	})
}

func TestTodaysMoods_Empty(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/moods/today", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body: got %s want []", got)
	}
}

func TestGetPhoto_NotFound(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/photos/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestWriteError(t *testing.T) {
	h := newFixture(t).handler

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "not found", err: domain.NotFound("nope"), wantStatus: http.StatusNotFound, wantBody: "nope"},
		{name: "conflict", err: domain.Conflict("again"), wantStatus: http.StatusConflict, wantBody: "again"},
		{name: "invalid", err: domain.InvalidInput("bad"), wantStatus: http.StatusBadRequest, wantBody: "bad"},
		{name: "wrapped", err: wrapf(domain.NotFound("deep")), wantStatus: http.StatusNotFound, wantBody: "deep"},
		{name: "unexpected", err: errors.New("db exploded"), wantStatus: http.StatusInternalServerError, wantBody: "internal server error"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", rr.Code, tc.wantStatus)
			}
			body := rr.Body.String()
			if !strings.Contains(body, tc.wantBody) {
				t.Errorf("body %q does not contain %q", body, tc.wantBody)
			}
			if strings.Contains(body, "db exploded") {
				t.Errorf("internal error leaked: %s", body)
			}
		})
	}
}

func wrapf(err error) error {
	return errors.Join(errors.New("service: failed"), err)
}
