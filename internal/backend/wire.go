package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// wireAnalysis is an analysis record as the backend serializes it.
type wireAnalysis struct {
	ID               string   `json:"id"`
	LegacyID         string   `json:"_id"`
	Num              int      `json:"num"`
	Text             string   `json:"text"`
	Sentiment        string   `json:"sentiment"`
	Priority         string   `json:"priority"`
	Confidence       *float64 `json:"confidence"`
	Timestamp        string   `json:"timestamp"`
	CreatedAt        string   `json:"created_at"`
	Tags             []string `json:"tags"`
	DetailedAnalysis string   `json:"detailed_analysis"`
}

// wireUpdate is the full-replacement body of an update request.
type wireUpdate struct {
	Text      string   `json:"text"`
	Sentiment string   `json:"sentiment"`
	Priority  string   `json:"priority"`
	Tags      []string `json:"tags"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
}

// toModel validates w and maps it onto the canonical model. Unrecognized
// enum values fall back to the backend's own defaults.
func (w wireAnalysis) toModel() (models.AnalysisResult, error) {
	id := strings.TrimSpace(w.ID)
	if id == "" {
		id = strings.TrimSpace(w.LegacyID)
	}
	if id == "" {
		return models.AnalysisResult{}, fmt.Errorf("%w: analysis record without id", ErrMalformedResponse)
	}

	sentiment, ok := models.ParseSentiment(w.Sentiment)
	if !ok {
		sentiment = models.SentimentNeutral
	}
	priority, ok := models.ParsePriority(w.Priority)
	if !ok {
		priority = models.PriorityMedium
	}

	var confidence float64
	if w.Confidence != nil {
		confidence = models.ClampConfidence(*w.Confidence)
	}

	return models.AnalysisResult{
		ID:               id,
		Num:              w.Num,
		Text:             w.Text,
		Sentiment:        sentiment,
		Priority:         priority,
		Confidence:       confidence,
		Timestamp:        parseTimestamp(firstNonEmpty(w.Timestamp, w.CreatedAt)),
		Tags:             models.NormalizeTags(w.Tags),
		DetailedAnalysis: w.DetailedAnalysis,
	}, nil
}

// toModels adapts a list, dropping records without an id and keeping the
// first occurrence of duplicated ids. It reports how many were dropped.
func toModels(ws []wireAnalysis) ([]models.AnalysisResult, int) {
	out := make([]models.AnalysisResult, 0, len(ws))
	seen := make(map[string]bool, len(ws))
	dropped := 0
	for _, w := range ws {
		r, err := w.toModel()
		if err != nil || seen[r.ID] {
			dropped++
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out, dropped
}

func fromDraft(d models.Draft) wireUpdate {
	tags := models.NormalizeTags(d.Tags)
	return wireUpdate{
		Text:      d.Text,
		Sentiment: string(d.Sentiment),
		Priority:  string(d.Priority),
		Tags:      []string(tags),
	}
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
