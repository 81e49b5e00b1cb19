package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geomoodmap/backend/internal/core/domain"
)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func mustCreateUser(t *testing.T, a *Adapter, id, email string) domain.User {
	t.Helper()
	u, err := a.CreateUser(context.Background(), domain.User{ID: id, Email: email, CreatedAt: base, UpdatedAt: base})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func sampleMood(id string, at time.Time) domain.Mood {
	return domain.Mood{
		ID:          id,
		TextContent: "sunny walk",
		UserRating:  4,
		Score:       4.01,
		Location:    domain.Location{Lat: 48.85, Lng: 2.35},
		Weather: domain.WeatherObservation{
			Condition:    "Clear",
			TemperatureC: 21.5,
			CloudCover:   10,
			WindSpeed:    3.2,
			Humidity:     40,
			Pressure:     1015,
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestAdapter_CreateUser(t *testing.T) {
	a := newTestAdapter(t)
	mustCreateUser(t, a, "u1", "ana@example.com")

	tests := []struct {
		name    string
		user    domain.User
		wantErr error
	}{
		{name: "duplicate email", user: domain.User{ID: "u2", Email: "ana@example.com"}, wantErr: domain.ErrConflict},
		{name: "duplicate id", user: domain.User{ID: "u1", Email: "other@example.com"}, wantErr: domain.ErrConflict},
		{name: "new user", user: domain.User{ID: "u3", Email: "bo@example.com", CreatedAt: base, UpdatedAt: base}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.CreateUser(context.Background(), tt.user)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.user.ID || got.Email != tt.user.Email {
				t.Fatalf("unexpected user %+v", got)
			}
		})
	}
}

func TestAdapter_FindByEmail(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mustCreateUser(t, a, "u1", "ana@example.com")
	withPicture := sampleMood("m2", base.Add(2*time.Hour))
	withPicture.Picture = "data:image/png;base64,AAAA"
	for _, m := range []domain.Mood{withPicture, sampleMood("m1", base)} {
		if _, err := a.AppendMood(ctx, "u1", m); err != nil {
			t.Fatalf("append mood: %v", err)
		}
	}

	u, err := a.FindByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.ID != "u1" || !u.CreatedAt.Equal(base) {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(u.Moods) != 2 {
		t.Fatalf("expected 2 moods, got %d", len(u.Moods))
	}
	// history is oldest first
	if u.Moods[0].ID != "m1" || u.Moods[1].ID != "m2" {
		t.Fatalf("unexpected order: %s, %s", u.Moods[0].ID, u.Moods[1].ID)
	}
	got := u.Moods[1]
	if got.Picture != withPicture.Picture {
		t.Fatalf("picture: got %q", got.Picture)
	}
	if got.Weather != withPicture.Weather {
		t.Fatalf("weather: got %+v, want %+v", got.Weather, withPicture.Weather)
	}
	if got.UserID != "u1" || got.Score != 4.01 || got.Location != withPicture.Location {
		t.Fatalf("unexpected mood %+v", got)
	}
	if !got.CreatedAt.Equal(withPicture.CreatedAt) {
		t.Fatalf("created at: got %v", got.CreatedAt)
	}
	if u.Moods[0].Picture != "" {
		t.Fatalf("expected empty picture, got %q", u.Moods[0].Picture)
	}
}

func TestAdapter_AppendMood(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	mustCreateUser(t, a, "u1", "ana@example.com")

	if _, err := a.AppendMood(ctx, "ghost", sampleMood("m1", base)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	stored, err := a.AppendMood(ctx, "u1", sampleMood("m1", base))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if stored.UserID != "u1" {
		t.Fatalf("expected user id to be set, got %q", stored.UserID)
	}

	if _, err := a.AppendMood(ctx, "u1", sampleMood("m1", base.Add(time.Hour))); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate mood id, got %v", err)
	}
}

func TestAdapter_MoodsBetween(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	mustCreateUser(t, a, "u1", "ana@example.com")
	mustCreateUser(t, a, "u2", "bo@example.com")
	mustCreateUser(t, a, "u3", "cy@example.com")

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	appends := []struct {
		user string
		mood domain.Mood
	}{
		{"u1", sampleMood("yesterday", start.Add(-time.Minute))},
		{"u1", sampleMood("u1-morning", start.Add(8 * time.Hour))},
		{"u1", sampleMood("u1-evening", start.Add(20 * time.Hour))},
		{"u2", sampleMood("u2-noon", start.Add(12 * time.Hour))},
		{"u2", sampleMood("tomorrow", end)},
		{"u3", sampleMood("midnight", start)},
	}
	for _, ap := range appends {
		if _, err := a.AppendMood(ctx, ap.user, ap.mood); err != nil {
			t.Fatalf("append %s: %v", ap.mood.ID, err)
		}
	}

	users, err := a.MoodsBetween(ctx, start, end)
	if err != nil {
		t.Fatalf("moods between: %v", err)
	}

	want := map[string][]string{
		"u1": {"u1-evening", "u1-morning"},
		"u2": {"u2-noon"},
		"u3": {"midnight"},
	}
	if len(users) != len(want) {
		t.Fatalf("expected %d users, got %d", len(want), len(users))
	}
	for _, u := range users {
		ids := want[u.ID]
		if len(u.Moods) != len(ids) {
			t.Fatalf("user %s: expected %d moods, got %d", u.ID, len(ids), len(u.Moods))
		}
		for i, id := range ids {
			if u.Moods[i].ID != id {
				t.Fatalf("user %s position %d: got %s, want %s", u.ID, i, u.Moods[i].ID, id)
			}
		}
		if u.Email == "" {
			t.Fatalf("user %s missing email", u.ID)
		}
	}
}
