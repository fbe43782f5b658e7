package views

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/pkg/models"
)

var (
	// ErrNoSelection is returned by edit and save when no record is open.
	ErrNoSelection = errors.New("no record selected")
	// ErrNotEditing is returned by Save outside edit mode.
	ErrNotEditing = errors.New("not editing")
	// ErrBusy is returned when the view is already waiting on the same action.
	ErrBusy = errors.New("operation already in progress")
	// ErrUnmounted is returned when an action starts after Unmount.
	ErrUnmounted = errors.New("view unmounted")
)

// Records is the record store as seen by views. *records.Store implements it.
type Records interface {
	LoadAll(ctx context.Context) error
	AnalyzeOne(ctx context.Context, text string) (models.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, filename string, content io.Reader) ([]models.AnalysisResult, error)
	Update(ctx context.Context, id string, d models.Draft) (models.AnalysisResult, error)
	Remove(ctx context.Context, id string) error
	Snapshot() []models.AnalysisResult
	Subscribe(fn records.Subscriber) (cancel func())
	Pending(id string) bool
}

// Filter narrows the history list. Zero values match everything.
type Filter struct {
	Sentiment models.Sentiment
	Priority  models.Priority
	Query     string
}

// Match reports whether r passes the filter. Query matches text and tags
// case-insensitively.
func (f Filter) Match(r models.AnalysisResult) bool {
	if f.Sentiment != "" && r.Sentiment != f.Sentiment {
		return false
	}
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Text), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(t, q) {
			return true
		}
	}
	return false
}

// HistoryState is a point-in-time copy of a HistoryView for rendering.
type HistoryState struct {
	Records  []models.AnalysisResult
	Total    int
	Filter   Filter
	Selected *models.AnalysisResult
	Editing  bool
	Draft    models.Draft
	Saving   bool
	Deleting string
	Loading  bool
	Err      string
}

// HistoryView is the history list with a detail modal and an editor.
// At most one record is selected; the draft belongs to the selection.
type HistoryView struct {
	mount *Mount
	store Records

	mu       sync.Mutex
	records  []models.AnalysisResult
	filter   Filter
	selected *models.AnalysisResult
	editing  bool
	draft    models.Draft
	saving   bool
	deleting string
	loading  bool
	err      string
}

// NewHistoryView subscribes to store for the lifetime of m.
func NewHistoryView(m *Mount, store Records) *HistoryView {
	v := &HistoryView{mount: m, store: store}
	v.records = store.Snapshot()
	cancel := store.Subscribe(func(snapshot []models.AnalysisResult) {
		m.Apply(func() { v.sync(snapshot) })
	})
	m.OnUnmount(cancel)
	m.OnUnmount(v.release)
	return v
}

// Load refreshes the collection from the backend.
func (v *HistoryView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	ctx, cancel := v.mount.Bind(ctx)
	defer cancel()
	err := v.store.LoadAll(ctx)

	v.mount.Apply(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.loading = false
		v.err = errMessage(err)
	})
	return err
}

// SetFilter replaces the list filter.
func (v *HistoryView) SetFilter(f Filter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
}

// Select opens the record with id, replacing any previous selection and
// discarding its draft. It reports whether id was found.
func (v *HistoryView) Select(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.records {
		if r.ID == id {
			v.selected = &r
			v.editing = false
			v.draft = models.Draft{}
			v.err = ""
			return true
		}
	}
	return false
}

// Close clears the selection and the draft.
func (v *HistoryView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = nil
	v.editing = false
	v.draft = models.Draft{}
}

// StartEdit copies the selected record into the draft.
func (v *HistoryView) StartEdit() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected == nil {
		return ErrNoSelection
	}
	v.draft = v.selected.Draft()
	v.editing = true
	return nil
}

// EditDraft mutates the draft in place.
func (v *HistoryView) EditDraft(fn func(d *models.Draft)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.editing {
		return ErrNotEditing
	}
	fn(&v.draft)
	return nil
}

// CancelEdit drops the draft and keeps the selection.
func (v *HistoryView) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editing = false
	v.draft = models.Draft{}
}

// Save sends the draft. On success the editor closes and the selection
// shows the backend's version; on failure the draft is kept and Err is set.
func (v *HistoryView) Save(ctx context.Context) error {
	v.mu.Lock()
	switch {
	case v.selected == nil:
		v.mu.Unlock()
		return ErrNoSelection
	case !v.editing:
		v.mu.Unlock()
		return ErrNotEditing
	case v.saving:
		v.mu.Unlock()
		return ErrBusy
	}
	id := v.selected.ID
	draft := v.draft
	draft.Tags = draft.Tags.Clone()
	v.saving = true
	v.err = ""
	v.mu.Unlock()

	ctx, cancel := v.mount.Bind(ctx)
	defer cancel()
	updated, err := v.store.Update(ctx, id, draft)

	v.mount.Apply(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.saving = false
		if err != nil {
			v.err = errMessage(err)
			return
		}
		v.editing = false
		v.draft = models.Draft{}
		if v.selected != nil && v.selected.ID == id {
			v.selected = &updated
		}
	})
	return err
}

// Delete removes id. The selection closes if it was the deleted record.
func (v *HistoryView) Delete(ctx context.Context, id string) error {
	v.mu.Lock()
	if v.deleting == id {
		v.mu.Unlock()
		return ErrBusy
	}
	v.deleting = id
	v.err = ""
	v.mu.Unlock()

	ctx, cancel := v.mount.Bind(ctx)
	defer cancel()
	err := v.store.Remove(ctx, id)

	v.mount.Apply(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.deleting == id {
			v.deleting = ""
		}
		if err != nil {
			v.err = errMessage(err)
			return
		}
		if v.selected != nil && v.selected.ID == id {
			v.selected = nil
			v.editing = false
			v.draft = models.Draft{}
		}
	})
	return err
}

// State returns a copy of the view for rendering. Records are filtered.
func (v *HistoryView) State() HistoryState {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := HistoryState{
		Total:    len(v.records),
		Filter:   v.filter,
		Editing:  v.editing,
		Saving:   v.saving,
		Deleting: v.deleting,
		Loading:  v.loading,
		Err:      v.err,
	}
	for _, r := range v.records {
		if v.filter.Match(r) {
			s.Records = append(s.Records, r)
		}
	}
	if v.selected != nil {
		sel := *v.selected
		sel.Tags = sel.Tags.Clone()
		s.Selected = &sel
	}
	if v.editing {
		s.Draft = v.draft
		s.Draft.Tags = v.draft.Tags.Clone()
	}
	return s
}

// sync applies a store snapshot. A selection whose record disappeared is
// closed; otherwise it follows the stored version.
func (v *HistoryView) sync(snapshot []models.AnalysisResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = snapshot
	if v.selected == nil {
		return
	}
	for _, r := range snapshot {
		if r.ID == v.selected.ID {
			v.selected = &r
			return
		}
	}
	v.selected = nil
	v.editing = false
	v.draft = models.Draft{}
}

func (v *HistoryView) release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = nil
	v.selected = nil
	v.draft = models.Draft{}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return records.UserMessage(err)
}
