package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagging-ai/tagboard/pkg/models"
)

func TestWriteCSV(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	records := []models.AnalysisResult{
		{ID: "a1", Text: `He said "refund", now`, Sentiment: models.SentimentNegative, Priority: models.PriorityHigh, Confidence: 0.87, Timestamp: ts},
		{ID: "b2", Text: "plain", Sentiment: "Mixed", Priority: models.PriorityLow, Confidence: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	want := "ID,Text,Sentiment,Priority,Confidence,Timestamp\n" +
		`a1,"He said ""refund"", now",Negative,High,0.87,2025-03-01T09:30:00Z` + "\n" +
		`b2,"plain",Mixed,Low,1,`
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "ID,Text,Sentiment,Priority,Confidence,Timestamp", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSV_WriterError(t *testing.T) {
	err := WriteCSV(failingWriter{}, []models.AnalysisResult{{ID: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 30, 5, 0, time.UTC)
	assert.Equal(t, "analysis-export-20250301-093005.csv", Filename(ts, "csv"))
}
