package progress

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tagging-ai/tagboard/pkg/models"
)

func init() {
	color.NoColor = true
}

func logEvent(msg string, sev models.Severity) Event {
	return Event{Type: TypeLog, Entry: &models.BatchLogEntry{
		Time: time.Date(2025, 3, 1, 9, 30, 5, 0, time.UTC), Message: msg, Severity: sev,
	}}
}

func TestTextEmitter(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"log", logEvent("Uploading to server...", models.SeverityInfo), "[09:30:05] Uploading to server...\n"},
		{"unknown severity", logEvent("odd", "debug"), "[09:30:05] odd\n"},
		{"progress", Event{Type: TypeProgress, Progress: 50}, "  progress 50%\n"},
		{"error", Event{Type: TypeError, Message: "boom"}, "Error: boom\n"},
		{"error with entry", Event{Type: TypeError, Message: "boom", Entry: logEvent("Critical Error: boom", models.SeverityError).Entry}, "[09:30:05] Critical Error: boom\n"},
		{"log without entry", Event{Type: TypeLog}, ""},
		{"done is silent", Event{Type: TypeDone}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTextEmitter(&buf).Emit(tt.ev)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLogEmitter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := NewLogEmitter(zap.New(core))

	e.Emit(logEvent("Uploading to server...", models.SeverityInfo))
	e.Emit(Event{Type: TypeProgress, Progress: 50})
	e.Emit(Event{Type: TypeError, Message: "Please upload a valid CSV file"})
	e.Emit(Event{Type: TypeDone, Results: make([]models.AnalysisResult, 3)})

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "Uploading to server...", entries[0].Message)
	assert.Equal(t, "info", entries[0].ContextMap()["severity"])
	assert.Equal(t, "error", entries[1].ContextMap()["severity"])
	assert.Equal(t, int64(3), entries[2].ContextMap()["results"])
}

func TestMulti(t *testing.T) {
	var a, b bytes.Buffer
	Multi{NewTextEmitter(&a), nil, NewTextEmitter(&b)}.Emit(Event{Type: TypeProgress, Progress: 10})

	assert.Equal(t, a.String(), b.String())
	assert.NotEmpty(t, a.String())
}

func TestSSEEmitter(t *testing.T) {
	rec := httptest.NewRecorder()
	e := NewSSEEmitter(rec)
	require.NotNil(t, e)

	e.Emit(Event{Type: TypeProgress, Progress: 100})
	e.Emit(logEvent("Successfully analyzed 3 entries", models.SeveritySuccess))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)

	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, frames, 2)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &ev))
	assert.Equal(t, TypeLog, ev.Type)
	assert.Equal(t, models.SeveritySuccess, ev.Entry.Severity)
}

type noFlush struct{ http.ResponseWriter }

func TestSSEEmitterRequiresFlusher(t *testing.T) {
	assert.Nil(t, NewSSEEmitter(noFlush{httptest.NewRecorder()}))
}
