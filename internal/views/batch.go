package views

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/tagging-ai/tagboard/internal/progress"
	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/pkg/models"
)

// Batch progress checkpoints.
const (
	ProgressIdle     = 0
	ProgressStarted  = 10
	ProgressUploaded = 50
	ProgressDone     = 100
)

// BatchState is a point-in-time copy of a BatchView for rendering.
type BatchState struct {
	Logs        []models.BatchLogEntry
	Progress    int
	Results     []models.AnalysisResult
	Processing  bool
	Dragging    bool
	ShowResults bool
	Notice      string
}

// BatchView drives a CSV upload: an append-only log that resets on each
// submission, a progress value and the analyzed rows.
type BatchView struct {
	mount   *Mount
	store   Records
	emitter progress.Emitter
	notify  bool
	now     func() time.Time

	mu          sync.Mutex
	logs        []models.BatchLogEntry
	progress    int
	results     []models.AnalysisResult
	processing  bool
	dragging    bool
	showResults bool
	notice      string
}

// BatchOption configures a BatchView.
type BatchOption func(*BatchView)

// WithEmitter mirrors log lines and progress to e.
func WithEmitter(e progress.Emitter) BatchOption {
	return func(v *BatchView) { v.emitter = e }
}

// WithCompletionNotice sets a notice after a successful batch.
func WithCompletionNotice(on bool) BatchOption {
	return func(v *BatchView) { v.notify = on }
}

// WithClock overrides the log timestamp source.
func WithClock(now func() time.Time) BatchOption {
	return func(v *BatchView) { v.now = now }
}

// NewBatchView creates an idle batch view bound to m.
func NewBatchView(m *Mount, store Records, opts ...BatchOption) *BatchView {
	v := &BatchView{mount: m, store: store, emitter: progress.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetDragging tracks whether a file is hovering over the drop zone.
func (v *BatchView) SetDragging(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dragging = on
}

// Submit uploads a CSV file. A file without a .csv extension only adds an
// error line to the log. A second Submit while one is running fails with
// ErrBusy.
func (v *BatchView) Submit(ctx context.Context, filename string, content io.Reader) ([]models.AnalysisResult, error) {
	v.SetDragging(false)
	if !records.IsCSV(filename) {
		v.log("Error: Please upload a valid CSV file", models.SeverityError)
		// The store rejects the name again without a network call.
		return v.store.AnalyzeBatch(ctx, filename, content)
	}

	busy := false
	started := v.apply(func() {
		if v.processing {
			busy = true
			return
		}
		v.processing = true
		v.showResults = false
		v.results = nil
		v.logs = nil
		v.notice = ""
		v.progress = ProgressStarted
	})
	switch {
	case !started:
		return nil, ErrUnmounted
	case busy:
		return nil, ErrBusy
	}
	v.emitter.Emit(progress.Event{Type: progress.TypeProgress, Progress: ProgressStarted})
	v.log("Starting analysis for: "+filepath.Base(filename), models.SeverityInfo)
	v.log("Uploading to server...", models.SeverityInfo)

	ctx, cancel := v.mount.Bind(ctx)
	defer cancel()
	results, err := v.store.AnalyzeBatch(ctx, filename, content)
	if err != nil {
		entry := v.entry("Critical Error: "+records.UserMessage(err), models.SeverityError)
		if v.apply(func() {
			v.logs = append(v.logs, entry)
			v.processing = false
		}) {
			v.emitter.Emit(progress.Event{Type: progress.TypeError, Entry: &entry, Message: records.UserMessage(err)})
		}
		return nil, err
	}

	v.setProgress(ProgressUploaded)
	v.log("Server is processing the analysis...", models.SeverityWarning)

	v.setProgress(ProgressDone)
	v.log(fmt.Sprintf("Successfully analyzed %d entries", len(results)), models.SeveritySuccess)
	notice := ""
	if v.notify {
		notice = fmt.Sprintf("Batch complete: %s entries analyzed", FormatNumber(len(results)))
	}
	if v.apply(func() {
		v.results = results
		v.processing = false
		v.showResults = true
		v.notice = notice
	}) {
		v.emitter.Emit(progress.Event{Type: progress.TypeDone, Progress: ProgressDone, Results: results, Message: notice})
	}
	return results, nil
}

// State returns a copy of the view for rendering.
func (v *BatchView) State() BatchState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return BatchState{
		Logs:        append([]models.BatchLogEntry(nil), v.logs...),
		Progress:    v.progress,
		Results:     append([]models.AnalysisResult(nil), v.results...),
		Processing:  v.processing,
		Dragging:    v.dragging,
		ShowResults: v.showResults,
		Notice:      v.notice,
	}
}

func (v *BatchView) entry(msg string, sev models.Severity) models.BatchLogEntry {
	return models.BatchLogEntry{Time: v.now(), Message: msg, Severity: sev}
}

// apply runs fn under the view lock if still mounted.
func (v *BatchView) apply(fn func()) bool {
	return v.mount.Apply(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		fn()
	})
}

func (v *BatchView) log(msg string, sev models.Severity) {
	entry := v.entry(msg, sev)
	if v.apply(func() { v.logs = append(v.logs, entry) }) {
		v.emitter.Emit(progress.Event{Type: progress.TypeLog, Entry: &entry})
	}
}

func (v *BatchView) setProgress(p int) {
	if v.apply(func() { v.progress = p }) {
		v.emitter.Emit(progress.Event{Type: progress.TypeProgress, Progress: p})
	}
}
