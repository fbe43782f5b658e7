package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/internal/progress"
	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/internal/views"
	"github.com/tagging-ai/tagboard/pkg/models"
)

// maxUpload bounds batch uploads.
const maxUpload = 32 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps a records error to a JSON status.
func writeStoreError(w http.ResponseWriter, err error) {
	var e *records.Error
	status := http.StatusBadGateway
	if errors.As(err, &e) {
		switch e.Kind {
		case records.KindAuth:
			status = http.StatusUnauthorized
		case records.KindValidation:
			status = http.StatusBadRequest
		case records.KindNotFound:
			status = http.StatusNotFound
		case records.KindInFlight:
			status = http.StatusConflict
		}
	}
	writeError(w, status, records.UserMessage(err))
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	store := s.recordsFor(r)
	if err := store.LoadAll(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	snapshot := store.Snapshot()
	if snapshot == nil {
		snapshot = []models.AnalysisResult{}
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	store := s.recordsFor(r)
	if err := store.LoadAll(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ComputeStats(store.Snapshot()))
}

// handleAPIBatch takes a multipart "file" upload and streams the batch log
// as Server-Sent Events.
func (s *Server) handleAPIBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	sse := progress.NewSSEEmitter(w)
	if sse == nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	emitter := progress.Multi{sse, progress.NewLogEmitter(s.logger.With(zap.String("file", header.Filename)))}

	m := views.NewMount(r.Context())
	defer m.Unmount()

	v := views.NewBatchView(m, s.recordsFor(r),
		views.WithEmitter(emitter),
		views.WithCompletionNotice(s.settings().Notifications.BatchComplete),
	)
	if _, err := v.Submit(r.Context(), header.Filename, file); err != nil {
		s.logger.Info("batch failed", zap.String("file", header.Filename), zap.Error(err))
		if !records.IsCSV(header.Filename) {
			emitter.Emit(progress.Event{Type: progress.TypeError, Message: records.UserMessage(err)})
		}
	}
}
