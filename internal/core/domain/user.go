package domain

import (
	"sort"
	"time"
)

// DuplicateWindow is the rolling period during which a second mood is rejected.
const DuplicateWindow = time.Hour

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Moods     []Mood    `json:"moods"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MoodTimestamps returns the creation time of every mood in history order.
func (u User) MoodTimestamps() []time.Time {
	ts := make([]time.Time, 0, len(u.Moods))
	for _, m := range u.Moods {
		ts = append(ts, m.CreatedAt)
	}
	return ts
}

// HasDuplicateWithinHour reports whether any timestamp is strictly after now minus one hour.
func HasDuplicateWithinHour(timestamps []time.Time, now time.Time) bool {
	cutoff := now.Add(-DuplicateWindow)
	for _, ts := range timestamps {
		if ts.IsZero() {
			continue
		}
		if ts.After(cutoff) {
			return true
		}
	}
	return false
}

// LatestMoods returns at most limit moods, newest first. A limit <= 0 keeps all of them.
func (u User) LatestMoods(limit int) []Mood {
	moods := make([]Mood, len(u.Moods))
	copy(moods, u.Moods)
	sort.SliceStable(moods, func(i, j int) bool {
		return moods[i].CreatedAt.After(moods[j].CreatedAt)
	})
	if limit > 0 && len(moods) > limit {
		moods = moods[:limit]
	}
	return moods
}

// DayBounds returns [start of day, start of next day) for t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
