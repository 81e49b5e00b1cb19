package domain

import (
	"fmt"
	"math"
)

// AnalysisRating scores how positive a signal is: 0/1 very negative, 3 neutral, 5 very positive.
type AnalysisRating int

const (
	MinAnalysisRating AnalysisRating = 0
	MaxAnalysisRating AnalysisRating = 5
	MinUserRating     AnalysisRating = 1
	MaxUserRating     AnalysisRating = 5
	NeutralRating     AnalysisRating = 3
)

func (r AnalysisRating) inRange(lo, hi AnalysisRating) bool {
	return r >= lo && r <= hi
}

// clampRating rounds score after clamping it to the [1, 5] sentiment scale.
func clampRating(score float64) AnalysisRating {
	score = math.Max(1, math.Min(5, score))
	return AnalysisRating(math.Round(score))
}

// WeightVector holds the fractional contribution of each rating component.
type WeightVector struct {
	TextInput     float64 `json:"textInput"`
	NumberInput   float64 `json:"numberInput"`
	PhotoAnalysis float64 `json:"photoAnalysis"`
	Weather       float64 `json:"weather"`
}

var (
	defaultWeights = WeightVector{TextInput: 0.33, NumberInput: 0.34, PhotoAnalysis: 0, Weather: 0.33}
	photoWeights   = WeightVector{TextInput: 0.25, NumberInput: 0.25, PhotoAnalysis: 0.25, Weather: 0.25}
)

// Percentages returns each weight rounded to the nearest integer percentage point.
func (w WeightVector) Percentages() [4]int {
	return [4]int{
		int(math.Round(w.TextInput * 100)),
		int(math.Round(w.NumberInput * 100)),
		int(math.Round(w.PhotoAnalysis * 100)),
		int(math.Round(w.Weather * 100)),
	}
}

// Validate requires the rounded percentages to sum to exactly 100.
func (w WeightVector) Validate() error {
	total := 0
	for _, p := range w.Percentages() {
		total += p
	}
	if total != 100 {
		return &Error{
			Kind:    KindInvalidInput,
			Message: "weight sum must equal 1.0",
			Err:     fmt.Errorf("got %d%%", total),
		}
	}
	return nil
}

// MoodRating is the weighted composite of the four component ratings.
// Ratings are fixed at construction; only the weight vector can be replaced.
type MoodRating struct {
	textInput     AnalysisRating
	numberInput   AnalysisRating
	weather       AnalysisRating
	photoAnalysis AnalysisRating
	weight        WeightVector
}

// NewMoodRating validates every component range and picks the default weights:
// equal quarters when a photo rating is supplied, otherwise 0.33/0.34/0/0.33.
func NewMoodRating(textInput, numberInput, weather AnalysisRating, photo *AnalysisRating) (*MoodRating, error) {
	if !numberInput.inRange(MinUserRating, MaxUserRating) {
		return nil, InvalidInput("User rating must be between 1 and 5")
	}
	if !textInput.inRange(MinAnalysisRating, MaxAnalysisRating) {
		return nil, InvalidInput("Text sentiment rating must be between 0 and 5")
	}
	if !weather.inRange(MinAnalysisRating, MaxAnalysisRating) {
		return nil, InvalidInput("Weather rating must be between 0 and 5")
	}
	if photo != nil && !photo.inRange(MinAnalysisRating, MaxAnalysisRating) {
		return nil, InvalidInput("Photo rating must be between 0 and 5")
	}

	m := &MoodRating{
		textInput:   textInput,
		numberInput: numberInput,
		weather:     weather,
		weight:      defaultWeights,
	}
	if photo != nil {
		m.photoAnalysis = *photo
		m.weight = photoWeights
	}
	if err := m.weight.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetWeight replaces the whole weight vector after validating it.
func (m *MoodRating) SetWeight(w WeightVector) error {
	if err := w.Validate(); err != nil {
		return err
	}
	m.weight = w
	return nil
}

func (m *MoodRating) Weight() WeightVector          { return m.weight }
func (m *MoodRating) TextInput() AnalysisRating     { return m.textInput }
func (m *MoodRating) NumberInput() AnalysisRating   { return m.numberInput }
func (m *MoodRating) Weather() AnalysisRating       { return m.weather }
func (m *MoodRating) PhotoAnalysis() AnalysisRating { return m.photoAnalysis }

// Total is the weighted sum of the component ratings under the current weights.
func (m *MoodRating) Total() float64 {
	return float64(m.textInput)*m.weight.TextInput +
		float64(m.numberInput)*m.weight.NumberInput +
		float64(m.photoAnalysis)*m.weight.PhotoAnalysis +
		float64(m.weather)*m.weight.Weather
}
