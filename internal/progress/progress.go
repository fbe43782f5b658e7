// Package progress streams batch processing updates to the CLI or a browser.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// Event types.
const (
	TypeLog      = "log"
	TypeProgress = "progress"
	TypeDone     = "done"
	TypeError    = "error"
)

// Event represents a single update during batch processing.
type Event struct {
	Type     string                  `json:"type"`
	Progress int                     `json:"progress,omitempty"`
	Entry    *models.BatchLogEntry   `json:"entry,omitempty"`
	Results  []models.AnalysisResult `json:"results,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

// Emitter receives events.
type Emitter interface {
	Emit(ev Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(Event) {}

// TextEmitter formats events as log lines for CLI output.
type TextEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextEmitter writes to w.
func NewTextEmitter(w io.Writer) *TextEmitter {
	return &TextEmitter{w: w}
}

var severityColors = map[models.Severity]*color.Color{
	models.SeverityInfo:    color.New(color.FgCyan),
	models.SeveritySuccess: color.New(color.FgGreen),
	models.SeverityWarning: color.New(color.FgYellow),
	models.SeverityError:   color.New(color.FgRed),
}

// Emit writes a formatted line to the underlying writer.
func (e *TextEmitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case TypeLog:
		if ev.Entry != nil {
			e.writeEntry(*ev.Entry)
		}
	case TypeProgress:
		fmt.Fprintf(e.w, "  progress %d%%\n", ev.Progress)
	case TypeError:
		if ev.Entry != nil {
			e.writeEntry(*ev.Entry)
			return
		}
		fmt.Fprintf(e.w, "Error: %s\n", ev.Message)
	}
}

func (e *TextEmitter) writeEntry(entry models.BatchLogEntry) {
	dim := color.New(color.FgHiBlack)
	_, _ = dim.Fprintf(e.w, "[%s] ", entry.Time.Format("15:04:05"))
	c, ok := severityColors[entry.Severity]
	if !ok {
		c = severityColors[models.SeverityInfo]
	}
	_, _ = c.Fprintln(e.w, entry.Message)
}

// Multi fans events out to several emitters.
type Multi []Emitter

func (m Multi) Emit(ev Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(ev)
		}
	}
}

// LogEmitter writes batch log lines to a diagnostic logger at debug level.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter logs through l.
func NewLogEmitter(l *zap.Logger) LogEmitter {
	return LogEmitter{logger: l}
}

func (e LogEmitter) Emit(ev Event) {
	switch ev.Type {
	case TypeLog, TypeError:
		if ev.Entry != nil {
			e.logger.Debug(ev.Entry.Message, zap.String("severity", string(ev.Entry.Severity)))
		} else if ev.Message != "" {
			e.logger.Debug(ev.Message, zap.String("severity", string(models.SeverityError)))
		}
	case TypeDone:
		e.logger.Debug("batch done", zap.Int("results", len(ev.Results)))
	}
}
