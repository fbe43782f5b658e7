package dashboard

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/internal/backend"
	"github.com/tagging-ai/tagboard/internal/export"
	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/internal/session"
	"github.com/tagging-ai/tagboard/internal/storage"
	"github.com/tagging-ai/tagboard/internal/views"
	"github.com/tagging-ai/tagboard/pkg/models"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Sign in"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	creds := backend.Credentials{
		Identifier: strings.TrimSpace(r.PostFormValue("identifier")),
		Password:   r.PostFormValue("password"),
	}
	if creds.Identifier == "" || creds.Password == "" {
		s.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Sign in", Error: "Email or username and password are required"})
		return
	}

	err := sess.Login(r.Context(), creds)
	switch {
	case err == nil, errors.Is(err, session.ErrAlreadyAuthenticated):
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	default:
		s.render(w, r, http.StatusUnauthorized, "login", pageData{Title: "Sign in", Error: backend.UserMessage(err)})
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	reg := backend.Registration{
		Fullname: strings.TrimSpace(r.PostFormValue("fullname")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if reg.Email == "" || reg.Username == "" || reg.Password == "" {
		s.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Sign up", Error: "Email, username and password are required", Data: reg})
		return
	}

	if err := session.FromContext(r.Context()).Register(r.Context(), reg); err != nil {
		reg.Password = ""
		s.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Sign up", Error: backend.UserMessage(err), Data: reg})
		return
	}
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Sign in", Notice: "Account created, please sign in"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := session.FromContext(r.Context()).Logout(); err != nil {
		s.logger.Warn("logout failed", zap.Error(err))
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// failed handles a store error on an HTML page. Auth failures redirect to
// the login page; it reports whether the response was written.
func (s *Server) failed(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if records.IsAuth(err) {
		_ = session.FromContext(r.Context()).Logout()
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return true
	}
	return false
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	m := views.NewMount(r.Context())
	defer m.Unmount()

	v := views.NewDashboardView(m, s.recordsFor(r))
	err := v.Refresh(r.Context())
	if s.failed(w, r, err) {
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", pageData{Title: "Dashboard", Error: v.Err(), Data: v.Stats()})
}

type historyPage struct {
	views.HistoryState
	Query string
}

func historyFilter(r *http.Request) views.Filter {
	q := r.URL.Query()
	f := views.Filter{Query: q.Get("q")}
	if v, ok := models.ParseSentiment(q.Get("sentiment")); ok {
		f.Sentiment = v
	}
	if v, ok := models.ParsePriority(q.Get("priority")); ok {
		f.Priority = v
	}
	return f
}

// openHistory loads history into a fresh view and applies the URL state:
// filter, selected record and edit mode.
func (s *Server) openHistory(w http.ResponseWriter, r *http.Request, m *views.Mount) (*views.HistoryView, bool) {
	v := views.NewHistoryView(m, s.recordsFor(r))
	if err := v.Load(r.Context()); s.failed(w, r, err) {
		return nil, false
	}
	v.SetFilter(historyFilter(r))

	if id := chi.URLParam(r, "id"); id != "" {
		if !v.Select(id) {
			http.NotFound(w, r)
			return nil, false
		}
		if r.URL.Query().Get("edit") == "1" {
			_ = v.StartEdit()
		}
	}
	return v, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	m := views.NewMount(r.Context())
	defer m.Unmount()

	v, ok := s.openHistory(w, r, m)
	if !ok {
		return
	}
	st := v.State()
	s.render(w, r, http.StatusOK, "history", pageData{
		Title:  "History",
		Error:  st.Err,
		Notice: r.URL.Query().Get("notice"),
		Data:   historyPage{HistoryState: st, Query: r.URL.RawQuery},
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	m := views.NewMount(r.Context())
	defer m.Unmount()

	v, ok := s.openHistory(w, r, m)
	if !ok {
		return
	}
	if err := v.StartEdit(); err != nil {
		http.NotFound(w, r)
		return
	}
	_ = v.EditDraft(func(d *models.Draft) {
		d.Text = r.PostFormValue("text")
		d.Sentiment, _ = models.ParseSentiment(r.PostFormValue("sentiment"))
		d.Priority, _ = models.ParsePriority(r.PostFormValue("priority"))
		d.Tags = models.NormalizeTags(strings.Split(r.PostFormValue("tags"), ","))
	})

	err := v.Save(r.Context())
	if s.failed(w, r, err) {
		return
	}
	if err != nil {
		st := v.State()
		status := http.StatusUnprocessableEntity
		if st.Selected == nil {
			status = http.StatusNotFound
		}
		s.render(w, r, status, "history", pageData{Title: "History", Error: st.Err, Data: historyPage{HistoryState: st}})
		return
	}
	http.Redirect(w, r, "/history/"+chi.URLParam(r, "id")+"?notice=Saved", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	m := views.NewMount(r.Context())
	defer m.Unmount()

	v, ok := s.openHistory(w, r, m)
	if !ok {
		return
	}
	err := v.Delete(r.Context(), chi.URLParam(r, "id"))
	if s.failed(w, r, err) {
		return
	}
	if err != nil {
		st := v.State()
		s.render(w, r, http.StatusConflict, "history", pageData{Title: "History", Error: st.Err, Data: historyPage{HistoryState: st}})
		return
	}
	http.Redirect(w, r, "/history?notice=Deleted", http.StatusSeeOther)
}

func (s *Server) handleSinglePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "single", pageData{Title: "Single analysis", Data: views.SingleState{}})
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	m := views.NewMount(r.Context())
	defer m.Unmount()

	v := views.NewSingleView(m, s.recordsFor(r), s.settings().Notifications.HighPriorityAlerts)
	v.SetInput(r.PostFormValue("text"))
	_, err := v.Analyze(r.Context())
	if s.failed(w, r, err) {
		return
	}

	st := v.State()
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, "single", pageData{Title: "Single analysis", Error: st.Err, Notice: st.Alert, Data: st})
}

func (s *Server) handleBatchPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "batch", pageData{Title: "Batch analysis"})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	store := s.recordsFor(r)
	err := store.LoadAll(r.Context())
	if s.failed(w, r, err) {
		return
	}
	if err != nil {
		http.Error(w, records.UserMessage(err), http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, store.Snapshot()); err != nil {
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}
	s.deliver(w, r, buf.Bytes(), "csv", export.CSVContentType)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := s.clientFor(r).ExportExcel(r.Context())
	if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrNoToken) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		http.Error(w, backend.UserMessage(err), http.StatusBadGateway)
		return
	}
	s.deliver(w, r, data, "xlsx", export.XLSXContentType)
}

// deliver sends an export as a download, or uploads it and redirects to
// the stored copy when ?upload=1 and object storage is configured.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, data []byte, ext, contentType string) {
	name := export.Filename(time.Now(), ext)

	if r.URL.Query().Get("upload") == "1" && s.cfg.Uploader != nil {
		owner := session.FromContext(r.Context()).User().Username
		link, err := s.cfg.Uploader.Upload(r.Context(), storage.ExportKey(owner, name), data, contentType)
		if err != nil {
			s.logger.Error("export upload failed", zap.Error(err))
			http.Error(w, "failed to upload export", http.StatusBadGateway)
			return
		}
		http.Redirect(w, r, link.String(), http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

type settingsPage struct {
	models.Settings
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "settings", pageData{Title: "Settings", Data: settingsPage{s.settings()}})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	st := models.Settings{
		APIEndpoint: strings.TrimSpace(r.PostFormValue("api_endpoint")),
		SaveHistory: r.PostFormValue("save_history") == "on",
		Notifications: models.Notifications{
			HighPriorityAlerts: r.PostFormValue("high_priority_alerts") == "on",
			BatchComplete:      r.PostFormValue("batch_complete") == "on",
		},
	}
	if err := s.cfg.Settings.Save(st); err != nil {
		s.render(w, r, http.StatusBadRequest, "settings", pageData{Title: "Settings", Error: err.Error(), Data: settingsPage{st}})
		return
	}
	s.render(w, r, http.StatusOK, "settings", pageData{Title: "Settings", Notice: "Settings saved. A new API endpoint applies after restart.", Data: settingsPage{st}})
}
