package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidencePercent(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.874, 87},
		{0.875, 88},
		{1, 100},
		{1.7, 100},
		{-0.2, 0},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidencePercent(tt.in), "confidence %v", tt.in)
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-1))
	assert.Equal(t, 1.0, ClampConfidence(3))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
}

func TestParseSentiment(t *testing.T) {
	s, ok := ParseSentiment("positive")
	assert.True(t, ok)
	assert.Equal(t, SentimentPositive, s)

	s, ok = ParseSentiment(" NEGATIVE ")
	assert.True(t, ok)
	assert.Equal(t, SentimentNegative, s)

	s, ok = ParseSentiment("ecstatic")
	assert.False(t, ok)
	assert.Equal(t, Sentiment("ecstatic"), s)
	assert.False(t, s.Valid())
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("high")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)
	assert.True(t, p.Valid())

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestDetailedFallsBackToPlaceholder(t *testing.T) {
	assert.Equal(t, DefaultDetailedAnalysis, AnalysisResult{}.Detailed())
	assert.Equal(t, DefaultDetailedAnalysis, AnalysisResult{DetailedAnalysis: "  "}.Detailed())
	assert.Equal(t, "Upset customer", AnalysisResult{DetailedAnalysis: "Upset customer"}.Detailed())
}

func TestDraftDoesNotAliasTags(t *testing.T) {
	r := AnalysisResult{Text: "hi", Tags: Tags{"billing"}}
	d := r.Draft()
	d.Tags = d.Tags.Add("refund")
	d.Tags[0] = "changed"

	assert.Equal(t, Tags{"billing"}, r.Tags)
}
