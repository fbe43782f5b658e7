package views

import (
	"context"
	"sync"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// SingleState is a point-in-time copy of a SingleView for rendering.
type SingleState struct {
	Input     string
	Result    *models.AnalysisResult
	Detailed  string
	Analyzing bool
	Err       string
	Alert     string
}

// SingleView analyzes one text at a time and keeps the last result.
type SingleView struct {
	mount  *Mount
	store  Records
	alerts bool

	mu        sync.Mutex
	input     string
	result    *models.AnalysisResult
	analyzing bool
	err       string
	alert     string
}

// NewSingleView creates an empty single-text view. With alerts on, a
// High priority result raises an alert message.
func NewSingleView(m *Mount, store Records, alerts bool) *SingleView {
	return &SingleView{mount: m, store: store, alerts: alerts}
}

// SetInput replaces the text to analyze.
func (v *SingleView) SetInput(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = text
}

// Analyze submits the current input. The previous result stays visible
// until the new one arrives.
func (v *SingleView) Analyze(ctx context.Context) (models.AnalysisResult, error) {
	v.mu.Lock()
	if v.analyzing {
		v.mu.Unlock()
		return models.AnalysisResult{}, ErrBusy
	}
	text := v.input
	v.analyzing = true
	v.err = ""
	v.alert = ""
	v.mu.Unlock()

	ctx, cancel := v.mount.Bind(ctx)
	defer cancel()
	r, err := v.store.AnalyzeOne(ctx, text)

	v.mount.Apply(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.analyzing = false
		if err != nil {
			v.err = errMessage(err)
			return
		}
		v.result = &r
		if v.alerts && r.Priority == models.PriorityHigh {
			v.alert = "High priority text detected"
		}
	})
	return r, err
}

// Reset clears the input and the last result.
func (v *SingleView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = ""
	v.result = nil
	v.err = ""
	v.alert = ""
}

// State returns a copy of the view for rendering.
func (v *SingleView) State() SingleState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := SingleState{Input: v.input, Analyzing: v.analyzing, Err: v.err, Alert: v.alert}
	if v.result != nil {
		r := *v.result
		r.Tags = r.Tags.Clone()
		s.Result = &r
		s.Detailed = r.Detailed()
	}
	return s
}
