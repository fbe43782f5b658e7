package views

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tagging-ai/tagboard/internal/backend"
	"github.com/tagging-ai/tagboard/internal/progress"
	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/pkg/models"
)

func init() {
	color.NoColor = true
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// backendStub is an in-memory analysis backend. When gate is set, Update,
// Delete and BatchAnalyze block until it is closed or ctx is done.
type backendStub struct {
	mu      sync.Mutex
	records []models.AnalysisResult
	seq     int
	gate    chan struct{}
	err     error
	calls   int
}

func (b *backendStub) wait(ctx context.Context) error {
	b.mu.Lock()
	b.calls++
	gate, err := b.gate, b.err
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (b *backendStub) add(text string, p models.Priority) models.AnalysisResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	r := models.AnalysisResult{
		ID: fmt.Sprintf("id-%d", b.seq), Text: text, Sentiment: models.SentimentPositive,
		Priority: p, Confidence: 0.9, Tags: models.Tags{"demo"},
	}
	b.records = append([]models.AnalysisResult{r}, b.records...)
	return r
}

func (b *backendStub) Analyze(ctx context.Context, text string) (models.AnalysisResult, error) {
	if err := b.wait(ctx); err != nil {
		return models.AnalysisResult{}, err
	}
	p := models.PriorityLow
	if strings.Contains(text, "urgent") {
		p = models.PriorityHigh
	}
	return b.add(text, p), nil
}

func (b *backendStub) BatchAnalyze(ctx context.Context, _ string, content io.Reader) ([]models.AnalysisResult, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	var out []models.AnalysisResult
	for _, row := range strings.Split(strings.TrimSpace(string(data)), "\n")[1:] {
		out = append(out, b.add(row, models.PriorityLow))
	}
	return out, nil
}

func (b *backendStub) History(context.Context) ([]models.AnalysisResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.AnalysisResult(nil), b.records...), nil
}

func (b *backendStub) Update(ctx context.Context, id string, d models.Draft) (models.AnalysisResult, error) {
	if err := b.wait(ctx); err != nil {
		return models.AnalysisResult{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.records {
		if r.ID == id {
			r.Text, r.Sentiment, r.Priority, r.Tags = strings.TrimSpace(d.Text), d.Sentiment, d.Priority, d.Tags
			b.records[i] = r
			return r, nil
		}
	}
	return models.AnalysisResult{}, &backend.APIError{Status: 404, Detail: "Record not found or access denied"}
}

func (b *backendStub) Delete(ctx context.Context, id string) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.records {
		if r.ID == id {
			b.records = append(b.records[:i], b.records[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Status: 404, Detail: "Record not found"}
}

func (b *backendStub) block() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	return b.gate
}

func newLoadedStore(t *testing.T, b *backendStub) *records.Store {
	t.Helper()
	s := records.New(b)
	require.NoError(t, s.LoadAll(context.Background()))
	return s
}

func TestMountApplyAfterUnmount(t *testing.T) {
	m := NewMount(context.Background())
	ran := 0
	cleaned := 0
	m.OnUnmount(func() { cleaned++ })

	assert.True(t, m.Apply(func() { ran++ }))
	m.Unmount()
	m.Unmount()

	assert.False(t, m.Apply(func() { ran++ }))
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, cleaned)
	assert.False(t, m.Mounted())
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)

	late := false
	m.OnUnmount(func() { late = true })
	assert.True(t, late)
}

func TestMountBind(t *testing.T) {
	m := NewMount(context.Background())
	ctx, cancel := m.Bind(context.Background())
	defer cancel()

	m.Unmount()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context not cancelled on unmount")
	}
}

func TestHistoryView_SelectEditSave(t *testing.T) {
	b := &backendStub{}
	first := b.add("first", models.PriorityLow)
	second := b.add("second", models.PriorityMedium)
	store := newLoadedStore(t, b)

	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewHistoryView(m, store)

	require.True(t, v.Select(first.ID))
	require.True(t, v.Select(second.ID))
	assert.Equal(t, second.ID, v.State().Selected.ID, "select replaces the selection")
	assert.False(t, v.Select("missing"))

	require.NoError(t, v.StartEdit())
	require.NoError(t, v.EditDraft(func(d *models.Draft) {
		d.Text = "  edited  "
		d.Priority = models.PriorityHigh
		d.Tags = d.Tags.Add("Urgent")
	}))
	require.NoError(t, v.Save(context.Background()))

	st := v.State()
	assert.False(t, st.Editing)
	assert.Empty(t, st.Err)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "edited", st.Selected.Text, "selection shows the server echo")
	assert.Equal(t, models.PriorityHigh, st.Selected.Priority)
	assert.Equal(t, models.Tags{"demo", "urgent"}, st.Selected.Tags)

	got, ok := store.Get(second.ID)
	require.True(t, ok)
	assert.Equal(t, "edited", got.Text)
}

func TestHistoryView_CloseAndCancel(t *testing.T) {
	b := &backendStub{}
	r := b.add("text", models.PriorityLow)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewHistoryView(m, newLoadedStore(t, b))

	assert.ErrorIs(t, v.StartEdit(), ErrNoSelection)
	assert.ErrorIs(t, v.Save(context.Background()), ErrNoSelection)

	v.Select(r.ID)
	assert.ErrorIs(t, v.Save(context.Background()), ErrNotEditing)
	assert.ErrorIs(t, v.EditDraft(func(*models.Draft) {}), ErrNotEditing)

	require.NoError(t, v.StartEdit())
	v.CancelEdit()
	st := v.State()
	assert.False(t, st.Editing)
	assert.NotNil(t, st.Selected)

	require.NoError(t, v.StartEdit())
	v.Close()
	st = v.State()
	assert.Nil(t, st.Selected)
	assert.False(t, st.Editing)
}

func TestHistoryView_SaveFailureKeepsDraft(t *testing.T) {
	b := &backendStub{}
	r := b.add("text", models.PriorityLow)
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewHistoryView(m, store)

	v.Select(r.ID)
	require.NoError(t, v.StartEdit())
	require.NoError(t, v.EditDraft(func(d *models.Draft) { d.Text = "   " }))

	err := v.Save(context.Background())
	require.Error(t, err)
	st := v.State()
	assert.True(t, st.Editing)
	assert.Equal(t, "   ", st.Draft.Text)
	assert.Equal(t, "Text cannot be empty", st.Err)
	assert.Equal(t, 0, b.calls)
}

func TestHistoryView_Delete(t *testing.T) {
	b := &backendStub{}
	r := b.add("text", models.PriorityLow)
	keep := b.add("keep", models.PriorityLow)
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewHistoryView(m, store)

	v.Select(r.ID)
	require.NoError(t, v.Delete(context.Background(), r.ID))

	st := v.State()
	assert.Nil(t, st.Selected, "deleted selection closes")
	assert.Empty(t, st.Deleting)
	require.Len(t, st.Records, 1)
	assert.Equal(t, keep.ID, st.Records[0].ID)
}

func TestHistoryView_DeleteWhileDeleting(t *testing.T) {
	b := &backendStub{}
	r := b.add("text", models.PriorityLow)
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewHistoryView(m, store)

	gate := b.block()
	done := make(chan error, 1)
	go func() { done <- v.Delete(context.Background(), r.ID) }()

	require.Eventually(t, func() bool { return v.State().Deleting == r.ID }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, v.Delete(context.Background(), r.ID), ErrBusy)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, b.calls)
}

func TestHistoryView_DeleteMissingRefreshes(t *testing.T) {
	b := &backendStub{}
	r := b.add("text", models.PriorityLow)
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewHistoryView(m, store)

	// Someone else deleted it.
	require.NoError(t, b.Delete(context.Background(), r.ID))

	err := v.Delete(context.Background(), r.ID)
	require.Error(t, err)
	st := v.State()
	assert.Equal(t, "Record no longer exists; history was refreshed", st.Err)
	assert.Empty(t, st.Records)
}

func TestHistoryView_UnmountDuringSave(t *testing.T) {
	b := &backendStub{}
	r := b.add("text", models.PriorityLow)
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	v := NewHistoryView(m, store)

	v.Select(r.ID)
	require.NoError(t, v.StartEdit())
	b.block()

	done := make(chan error, 1)
	go func() { done <- v.Save(context.Background()) }()
	require.Eventually(t, func() bool { return store.Pending(r.ID) }, time.Second, 5*time.Millisecond)

	before := v.State()
	m.Unmount()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	after := v.State()
	assert.True(t, after.Saving, "late response is not applied after unmount")
	assert.Equal(t, before.Err, after.Err)
	assert.Nil(t, after.Selected)
}

func TestFilter(t *testing.T) {
	r := models.AnalysisResult{Text: "Great Service", Sentiment: models.SentimentPositive, Priority: models.PriorityLow, Tags: models.Tags{"support"}}

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"zero matches", Filter{}, true},
		{"sentiment", Filter{Sentiment: models.SentimentPositive}, true},
		{"wrong priority", Filter{Priority: models.PriorityHigh}, false},
		{"text query", Filter{Query: "great"}, true},
		{"tag query", Filter{Query: "SUPP"}, true},
		{"no match", Filter{Query: "refund"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Match(r))
		})
	}
}

func TestBatchView_Success(t *testing.T) {
	b := &backendStub{}
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()

	var out bytes.Buffer
	clock := func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) }
	v := NewBatchView(m, store, WithEmitter(progress.NewTextEmitter(&out)), WithCompletionNotice(true), WithClock(clock))

	results, err := v.Submit(context.Background(), "feedback.csv", strings.NewReader("text\nfirst\nsecond\nthird\n"))
	require.NoError(t, err)
	assert.Len(t, results, 3)

	st := v.State()
	assert.Equal(t, ProgressDone, st.Progress)
	assert.False(t, st.Processing)
	assert.True(t, st.ShowResults)
	assert.Len(t, st.Results, 3)
	assert.Equal(t, "Batch complete: 3 entries analyzed", st.Notice)

	require.NotEmpty(t, st.Logs)
	assert.Equal(t, "Starting analysis for: feedback.csv", st.Logs[0].Message)
	last := st.Logs[len(st.Logs)-1]
	assert.Equal(t, "Successfully analyzed 3 entries", last.Message)
	assert.Equal(t, models.SeveritySuccess, last.Severity)

	assert.Contains(t, out.String(), "progress 10%")
	assert.Contains(t, out.String(), "progress 50%")
	assert.Contains(t, out.String(), "[09:30:00] Successfully analyzed 3 entries")

	assert.Empty(t, store.Snapshot(), "batch results are not merged into history")
}

func TestBatchView_RejectsNonCSV(t *testing.T) {
	b := &backendStub{}
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewBatchView(m, store)

	_, err := v.Submit(context.Background(), "notes.txt", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, records.ErrNotCSV)

	st := v.State()
	require.Len(t, st.Logs, 1)
	assert.Equal(t, "Error: Please upload a valid CSV file", st.Logs[0].Message)
	assert.Equal(t, models.SeverityError, st.Logs[0].Severity)
	assert.Equal(t, ProgressIdle, st.Progress)
	assert.Equal(t, 0, b.calls)
}

func TestBatchView_FailureAndReset(t *testing.T) {
	b := &backendStub{err: &backend.APIError{Status: 500, Detail: "Failed to process CSV"}}
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewBatchView(m, store)

	_, err := v.Submit(context.Background(), "a.csv", strings.NewReader("text\nrow\n"))
	require.Error(t, err)
	st := v.State()
	assert.False(t, st.Processing)
	assert.Equal(t, "Critical Error: Failed to process CSV", st.Logs[len(st.Logs)-1].Message)

	b.mu.Lock()
	b.err = nil
	b.mu.Unlock()
	_, err = v.Submit(context.Background(), "b.csv", strings.NewReader("text\nrow\n"))
	require.NoError(t, err)
	st = v.State()
	assert.Equal(t, "Starting analysis for: b.csv", st.Logs[0].Message, "log resets per submission")
}

func TestBatchView_Busy(t *testing.T) {
	b := &backendStub{}
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewBatchView(m, store)

	gate := b.block()
	done := make(chan error, 1)
	go func() {
		_, err := v.Submit(context.Background(), "a.csv", strings.NewReader("text\nrow\n"))
		done <- err
	}()
	require.Eventually(t, func() bool { return v.State().Processing }, time.Second, 5*time.Millisecond)

	_, err := v.Submit(context.Background(), "b.csv", strings.NewReader("text\nrow\n"))
	assert.ErrorIs(t, err, ErrBusy)

	close(gate)
	require.NoError(t, <-done)
}

func TestBatchView_Dragging(t *testing.T) {
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewBatchView(m, newLoadedStore(t, &backendStub{}))

	v.SetDragging(true)
	assert.True(t, v.State().Dragging)
	_, _ = v.Submit(context.Background(), "x.txt", strings.NewReader(""))
	assert.False(t, v.State().Dragging)
}

func TestSingleView(t *testing.T) {
	b := &backendStub{}
	store := newLoadedStore(t, b)
	m := NewMount(context.Background())
	defer m.Unmount()
	v := NewSingleView(m, store, true)

	v.SetInput("   ")
	_, err := v.Analyze(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Please enter some text to analyze", v.State().Err)
	assert.Equal(t, 0, b.calls)

	v.SetInput("urgent: server down")
	r, err := v.Analyze(context.Background())
	require.NoError(t, err)

	st := v.State()
	require.NotNil(t, st.Result)
	assert.Equal(t, r.ID, st.Result.ID)
	assert.Equal(t, models.DefaultDetailedAnalysis, st.Detailed)
	assert.Equal(t, "High priority text detected", st.Alert)
	assert.Empty(t, st.Err)

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, r.ID, snap[0].ID)

	v.Reset()
	assert.Nil(t, v.State().Result)
}

func TestDashboardView_FollowsStore(t *testing.T) {
	b := &backendStub{}
	b.add("a", models.PriorityHigh)
	store := records.New(b)
	m := NewMount(context.Background())
	v := NewDashboardView(m, store)

	assert.Equal(t, 0, v.Stats().TotalProcessed)
	require.NoError(t, v.Refresh(context.Background()))
	assert.Equal(t, 1, v.Stats().TotalProcessed)
	assert.Equal(t, 1, v.Stats().HighPriority)
	assert.Equal(t, "10.0", v.Stats().AvgSentiment)

	m.Unmount()
	_, err := store.AnalyzeOne(context.Background(), "after unmount")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Stats().TotalProcessed, "unmounted view stops following")
}

func TestErrMessage(t *testing.T) {
	assert.Empty(t, errMessage(nil))
	assert.Equal(t, "Server unreachable", errMessage(errors.New("dial tcp: refused")))
}
