// Package records holds the client-side collection of analysis results.
// Every mutation is confirmation-first: the collection changes only after
// the backend has accepted the operation, and then to the backend's version.
package records

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// API is the subset of the backend client the store needs.
type API interface {
	Analyze(ctx context.Context, text string) (models.AnalysisResult, error)
	BatchAnalyze(ctx context.Context, filename string, content io.Reader) ([]models.AnalysisResult, error)
	History(ctx context.Context) ([]models.AnalysisResult, error)
	Update(ctx context.Context, id string, d models.Draft) (models.AnalysisResult, error)
	Delete(ctx context.Context, id string) error
}

// Archive receives confirmed changes when local history saving is on.
type Archive interface {
	Upsert(ctx context.Context, records ...models.AnalysisResult) error
	Delete(ctx context.Context, id string) error
}

// Subscriber receives a snapshot after every change.
type Subscriber func(snapshot []models.AnalysisResult)

// Store is the goroutine-safe record collection. Network calls run outside
// the lock and results are applied by id.
type Store struct {
	api     API
	archive Archive
	logger  *zap.Logger

	mu       sync.Mutex
	records  []models.AnalysisResult
	loaded   bool
	inFlight map[string]string
	subs     map[int]Subscriber
	nextSub  int
}

// Option configures a Store.
type Option func(*Store)

// WithArchive writes confirmed changes through to a.
func WithArchive(a Archive) Option {
	return func(s *Store) { s.archive = a }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:      api,
		logger:   zap.NewNop(),
		inFlight: make(map[string]string),
		subs:     make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadAll replaces the collection with the backend history, in backend order.
func (s *Store) LoadAll(ctx context.Context) error {
	records, err := s.api.History(ctx)
	if err != nil {
		return classify("load history", "", err)
	}

	s.mu.Lock()
	s.records = cloneAll(records)
	s.loaded = true
	s.mu.Unlock()

	s.archiveUpsert(ctx, records...)
	s.notify()
	return nil
}

// AnalyzeOne submits text and prepends the created record.
func (s *Store) AnalyzeOne(ctx context.Context, text string) (models.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return models.AnalysisResult{}, validation("analyze", ErrEmptyText, "Please enter some text to analyze")
	}

	r, err := s.api.Analyze(ctx, text)
	if err != nil {
		return models.AnalysisResult{}, classify("analyze", "", err)
	}

	s.mu.Lock()
	s.records = append([]models.AnalysisResult{clone(r)}, without(s.records, r.ID)...)
	s.mu.Unlock()

	s.archiveUpsert(ctx, r)
	s.notify()
	return r, nil
}

// AnalyzeBatch uploads a CSV file. The created records are returned as a
// transient batch and are not merged into the collection; LoadAll picks
// them up.
func (s *Store) AnalyzeBatch(ctx context.Context, filename string, content io.Reader) ([]models.AnalysisResult, error) {
	if !IsCSV(filename) {
		return nil, validation("batch analyze", ErrNotCSV, "Please upload a valid CSV file")
	}

	records, err := s.api.BatchAnalyze(ctx, filepath.Base(filename), content)
	if err != nil {
		return nil, classify("batch analyze", "", err)
	}

	s.archiveUpsert(ctx, records...)
	return records, nil
}

// Update replaces the editable fields of id. On success the stored record
// becomes the backend's echo; on failure it is left untouched.
func (s *Store) Update(ctx context.Context, id string, d models.Draft) (models.AnalysisResult, error) {
	if err := validateDraft(d); err != nil {
		return models.AnalysisResult{}, err
	}
	if err := s.begin("update", id); err != nil {
		return models.AnalysisResult{}, err
	}
	defer s.end(id)

	d.Tags = models.NormalizeTags(d.Tags)
	r, err := s.api.Update(ctx, id, d)
	if err != nil {
		return models.AnalysisResult{}, s.failMutation(ctx, "update", id, err)
	}

	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i] = clone(r)
			break
		}
	}
	s.mu.Unlock()

	s.archiveUpsert(ctx, r)
	s.notify()
	return r, nil
}

// Remove deletes id. A second Remove or Update of the same id while the
// first is in flight fails with KindInFlight without a network call.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.begin("delete", id); err != nil {
		return err
	}
	defer s.end(id)

	if err := s.api.Delete(ctx, id); err != nil {
		return s.failMutation(ctx, "delete", id, err)
	}

	s.mu.Lock()
	s.records = without(s.records, id)
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Delete(ctx, id); err != nil {
			s.logger.Warn("archive delete failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.notify()
	return nil
}

// Snapshot returns a copy of the collection.
func (s *Store) Snapshot() []models.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.records)
}

// Get returns the record with id.
func (s *Store) Get(id string) (models.AnalysisResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return clone(r), true
		}
	}
	return models.AnalysisResult{}, false
}

// Pending reports whether a mutation of id is in flight.
func (s *Store) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// Subscribe registers fn for change notifications and returns a function
// that unregisters it.
func (s *Store) Subscribe(fn Subscriber) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// IsCSV reports whether filename has a .csv extension.
func IsCSV(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

func (s *Store) begin(op, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if running, ok := s.inFlight[id]; ok {
		return &Error{Op: op, ID: id, Kind: KindInFlight, Message: "Please wait, " + running + " in progress", Err: ErrInFlight}
	}
	// Before the first load the store cannot tell unknown ids apart.
	if s.loaded && !slices.ContainsFunc(s.records, func(r models.AnalysisResult) bool { return r.ID == id }) {
		return &Error{Op: op, ID: id, Kind: KindNotFound, Message: "This analysis no longer exists", Err: ErrUnknownRecord}
	}
	s.inFlight[id] = op
	return nil
}

func (s *Store) end(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// failMutation classifies err and refreshes the collection when the record
// turned out not to exist anymore.
func (s *Store) failMutation(ctx context.Context, op, id string, err error) error {
	e := classify(op, id, err)
	if e.Kind != KindNotFound {
		return e
	}

	if rerr := s.LoadAll(ctx); rerr != nil {
		s.logger.Warn("refresh after not found failed", zap.String("id", id), zap.Error(rerr))
		e.Message = "Record no longer exists"
		return e
	}
	e.Message = "Record no longer exists; history was refreshed"
	return e
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	snapshot := cloneAll(s.records)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *Store) archiveUpsert(ctx context.Context, records ...models.AnalysisResult) {
	if s.archive == nil || len(records) == 0 {
		return
	}
	if err := s.archive.Upsert(ctx, records...); err != nil {
		s.logger.Warn("archive write failed", zap.Int("records", len(records)), zap.Error(err))
	}
}

func validateDraft(d models.Draft) error {
	switch {
	case strings.TrimSpace(d.Text) == "":
		return validation("update", ErrEmptyText, "Text cannot be empty")
	case !d.Sentiment.Valid():
		return validation("update", errors.New("invalid sentiment"), "Sentiment must be Positive, Neutral or Negative")
	case !d.Priority.Valid():
		return validation("update", errors.New("invalid priority"), "Priority must be Low, Medium or High")
	}
	return nil
}

func without(records []models.AnalysisResult, id string) []models.AnalysisResult {
	out := make([]models.AnalysisResult, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func clone(r models.AnalysisResult) models.AnalysisResult {
	r.Tags = r.Tags.Clone()
	return r
}

func cloneAll(records []models.AnalysisResult) []models.AnalysisResult {
	out := make([]models.AnalysisResult, len(records))
	for i, r := range records {
		out[i] = clone(r)
	}
	return out
}
