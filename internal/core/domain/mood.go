package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTextLength   = 1000
	MaxPictureBytes = 50 << 20
)

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are within WGS84 ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Picture is an uploaded photo.
type Picture struct {
	MimeType string
	Data     []byte
}

// IsSupportedPictureType reports whether mimeType is JPEG or PNG.
func IsSupportedPictureType(mimeType string) bool {
	return mimeType == "image/jpeg" || mimeType == "image/png"
}

// Mood is a persisted mood entry. Entries are append-only.
type Mood struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	TextContent string             `json:"textContent"`
	UserRating  int                `json:"userRating"`
	Score       float64            `json:"rating"`
	Location    Location           `json:"location"`
	Weather     WeatherObservation `json:"weather"`
	Picture     string             `json:"picture,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// CreateMoodInput is a validated mood submission.
type CreateMoodInput struct {
	Email       string
	TextContent string
	Rating      int
	Location    Location
	Picture     *Picture
}

// Validate enforces the submission contract before any collaborator is called.
func (in CreateMoodInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" {
		return InvalidInput("email is required")
	}
	if n := utf8.RuneCountInString(in.TextContent); n == 0 || n > MaxTextLength {
		return InvalidInput("textContent must be between 1 and 1000 characters")
	}
	if in.Rating < int(MinUserRating) || in.Rating > int(MaxUserRating) {
		return InvalidInput("User rating must be between 1 and 5")
	}
	if !in.Location.Valid() {
		return InvalidInput("location is out of range")
	}
	if in.Picture != nil {
		if !IsSupportedPictureType(in.Picture.MimeType) {
			return InvalidInput("picture must be image/jpeg or image/png")
		}
		if len(in.Picture.Data) == 0 || len(in.Picture.Data) > MaxPictureBytes {
			return InvalidInput("picture must be between 1 byte and 50MB")
		}
	}
	return nil
}

// MoodCreated is published once a mood has been persisted.
type MoodCreated struct {
	MoodID    string    `json:"moodId"`
	UserID    string    `json:"userId"`
	Score     float64   `json:"rating"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMoodCreated builds the event for a persisted mood.
func NewMoodCreated(m Mood) MoodCreated {
	return MoodCreated{
		MoodID:    m.ID,
		UserID:    m.UserID,
		Score:     m.Score,
		Location:  m.Location,
		CreatedAt: m.CreatedAt,
	}
}
