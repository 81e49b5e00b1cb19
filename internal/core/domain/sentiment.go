package domain

import (
	"math"
	"strings"
)

var positiveKeywords = map[string]struct{}{
	"bien":        {},
	"heureux":     {},
	"heureuse":    {},
	"content":     {},
	"contente":    {},
	"joie":        {},
	"joyeux":      {},
	"super":       {},
	"génial":      {},
	"excellent":   {},
	"parfait":     {},
	"merveilleux": {},
	"ravi":        {},

	"good":      {},
	"happy":     {},
	"great":     {},
	"wonderful": {},
	"amazing":   {},
	"fantastic": {},
	"perfect":   {},
	"joy":       {},
	"love":      {},
	"glad":      {},
	"pleased":   {},
}

var negativeKeywords = map[string]struct{}{
	"mal":         {},
	"triste":      {},
	"malheureux":  {},
	"malheureuse": {},
	"déprimé":     {},
	"déprimée":    {},
	"horrible":    {},
	"terrible":    {},
	"mauvais":     {},
	"affreux":     {},
	"désespéré":   {},
	"fâché":       {},

	"bad":        {},
	"sad":        {},
	"unhappy":    {},
	"depressed":  {},
	"awful":      {},
	"miserable":  {},
	"angry":      {},
	"frustrated": {},
	"upset":      {},
	"hate":       {},
}

func isSentimentPunct(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '\'', '"', '(', ')', '“', '”', '‘', '’':
		return true
	}
	return false
}

// EstimateTextRating scores text by the ratio of positive to negative keywords.
// Text without any known keyword is neutral.
func EstimateTextRating(text string) AnalysisRating {
	normalized := strings.Map(func(r rune) rune {
		if isSentimentPunct(r) {
			return ' '
		}
		return r
	}, strings.ToLower(text))

	var positive, negative int
	for _, word := range strings.Fields(normalized) {
		if _, ok := positiveKeywords[word]; ok {
			positive++
		}
		if _, ok := negativeKeywords[word]; ok {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return NeutralRating
	}
	ratio := float64(positive) / float64(total)
	return clampRating(math.Round(1 + ratio*4))
}
