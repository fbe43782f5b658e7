package models

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Sentiment is the emotional polarity assigned to a text by the backend.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Sentiments lists the recognized sentiment values in display order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// Priority is the urgency assigned to a text by the backend.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists the recognized priority values in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// DefaultDetailedAnalysis is shown when the backend returned no prose.
const DefaultDetailedAnalysis = "No detailed analysis provided."

// ParseSentiment matches s case-insensitively against the known sentiments.
func ParseSentiment(s string) (Sentiment, bool) {
	for _, v := range Sentiments {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, true
		}
	}
	return Sentiment(s), false
}

// Valid reports whether s is one of the recognized sentiments.
func (s Sentiment) Valid() bool {
	return slices.Contains(Sentiments, s)
}

// ParsePriority matches s case-insensitively against the known priorities.
func ParsePriority(s string) (Priority, bool) {
	for _, v := range Priorities {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, true
		}
	}
	return Priority(s), false
}

// Valid reports whether p is one of the recognized priorities.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// AnalysisResult is a single analyzed text as confirmed by the backend.
// ID and Timestamp are assigned by the backend and never change.
type AnalysisResult struct {
	ID               string    `json:"id"`
	Num              int       `json:"num,omitempty"`
	Text             string    `json:"text"`
	Sentiment        Sentiment `json:"sentiment"`
	Priority         Priority  `json:"priority"`
	Confidence       float64   `json:"confidence"`
	Timestamp        time.Time `json:"timestamp"`
	Tags             Tags      `json:"tags"`
	DetailedAnalysis string    `json:"detailedAnalysis,omitempty"`
}

// ConfidencePercent returns the confidence as a whole percentage in [0, 100].
func (r AnalysisResult) ConfidencePercent() int {
	return ConfidencePercent(r.Confidence)
}

// Detailed returns the detailed analysis or the default placeholder.
func (r AnalysisResult) Detailed() string {
	if strings.TrimSpace(r.DetailedAnalysis) == "" {
		return DefaultDetailedAnalysis
	}
	return r.DetailedAnalysis
}

// Draft returns an editable copy of the mutable fields.
func (r AnalysisResult) Draft() Draft {
	return Draft{
		Text:      r.Text,
		Sentiment: r.Sentiment,
		Priority:  r.Priority,
		Tags:      r.Tags.Clone(),
	}
}

// ConfidencePercent converts a [0,1] fraction into a rounded, clamped percentage.
func ConfidencePercent(c float64) int {
	if math.IsNaN(c) {
		return 0
	}
	p := math.Round(c * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// ClampConfidence forces c into [0,1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// Draft holds the user-editable fields of an AnalysisResult.
type Draft struct {
	Text      string    `json:"text"`
	Sentiment Sentiment `json:"sentiment"`
	Priority  Priority  `json:"priority"`
	Tags      Tags      `json:"tags"`
}
