package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

const textSentimentPrompt = `You are a sentiment analysis API that returns raw JSON only.
Analyze the sentiment of the text below and respond with a JSON object.
CRITICAL FORMATTING RULES:
- Return ONLY the raw JSON object
- DO NOT wrap in markdown code blocks
- DO NOT use backticks
- DO NOT add any explanation or text
Required format (copy exactly): {"score":4}
Scoring guidelines:
- 1: Very negative (despair, severe sadness, anger)
- 2: Negative (sad, disappointed, frustrated)
- 3: Neutral (neither positive nor negative, calm)
- 4: Positive (happy, content, pleased)
- 5: Very positive (joy, excitement, elation)
Examples of CORRECT responses:
{"score":1}
{"score":3}
{"score":5}
Text to analyze: `

const pictureSentimentPrompt = `You are a facial emotion analysis API that returns raw JSON only.
Analyze the facial expression and emotion in this image and respond with a JSON object.
CRITICAL FORMATTING RULES:
- Return ONLY the raw JSON object
- DO NOT wrap in markdown code blocks
- DO NOT use backticks
- DO NOT add any explanation or text
Required format (copy exactly): {"score":4}
Scoring guidelines for facial expressions:
- 1: Very negative emotion (crying, despair, anger, extreme sadness)
- 2: Negative emotion (sad face, frown, disappointed expression, frustration)
- 3: Neutral emotion (calm face, no strong emotion, relaxed, contemplative)
- 4: Positive emotion (smile, content expression, pleasant look, satisfied)
- 5: Very positive emotion (big smile, laughing, joy, excitement, elation)
Focus on the primary facial expression visible in the image.`

var errInvalidScore = errors.New("invalid sentiment score")

// SentimentAnalyzer scores text and pictures through a language model.
// Its methods never fail: model errors degrade to a local estimate.
type SentimentAnalyzer struct {
	llm    ports.LanguageModel
	logger *slog.Logger
}

// NewSentimentAnalyzer constructs a SentimentAnalyzer.
func NewSentimentAnalyzer(llm ports.LanguageModel, logger *slog.Logger) *SentimentAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SentimentAnalyzer{llm: llm, logger: logger}
}

// TextSentiment returns the model score for text, or the keyword estimate when the model fails.
func (a *SentimentAnalyzer) TextSentiment(ctx context.Context, text string) domain.AnalysisRating {
	reply, err := a.llm.Complete(ctx, textSentimentPrompt+text)
	if err == nil {
		var score domain.AnalysisRating
		if score, err = parseScore(reply); err == nil {
			return score
		}
	}
	a.logger.WarnContext(ctx, "text sentiment analysis failed, using keyword fallback", "error", err)
	return domain.EstimateTextRating(text)
}

// PictureSentiment returns the model score for a picture, or neutral when the model fails.
func (a *SentimentAnalyzer) PictureSentiment(ctx context.Context, picture domain.Picture) domain.AnalysisRating {
	reply, err := a.llm.CompleteWithImage(ctx, pictureSentimentPrompt, picture)
	if err == nil {
		var score domain.AnalysisRating
		if score, err = parseScore(reply); err == nil {
			return score
		}
	}
	a.logger.WarnContext(ctx, "picture sentiment analysis failed, returning neutral score", "error", err)
	return domain.NeutralRating
}

type scoreReply struct {
	Score *float64 `json:"score"`
}

func parseScore(reply string) (domain.AnalysisRating, error) {
	body := stripCodeFence(strings.TrimSpace(reply))

	var parsed scoreReply
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return 0, fmt.Errorf("decode model reply: %w", err)
	}
	if parsed.Score == nil {
		return 0, fmt.Errorf("%w: missing score", errInvalidScore)
	}
	s := *parsed.Score
	if s != math.Trunc(s) || s < float64(domain.MinUserRating) || s > float64(domain.MaxUserRating) {
		return 0, fmt.Errorf("%w: %v", errInvalidScore, s)
	}
	return domain.AnalysisRating(s), nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
