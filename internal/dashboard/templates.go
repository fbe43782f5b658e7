package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/internal/session"
	"github.com/tagging-ai/tagboard/internal/views"
	"github.com/tagging-ai/tagboard/pkg/models"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

func staticFS() fs.FS {
	sub, _ := fs.Sub(staticFiles, "static")
	return sub
}

var pageNames = []string{"login", "dashboard", "history", "single", "batch", "settings"}

type pages struct {
	byName map[string]*template.Template
}

var funcs = template.FuncMap{
	"relTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return views.RelativeTime(t, time.Now())
	},
	"truncate":       views.Truncate,
	"shortID":        views.ShortID,
	"number":         views.FormatNumber,
	"percent":        views.Percent,
	"sentimentClass": func(s models.Sentiment) string { return views.SentimentTreatment(s).Class },
	"priorityClass":  func(p models.Priority) string { return views.PriorityTreatment(p).Class },
	"join":           func(t models.Tags) string { return strings.Join(t, ", ") },
	"sentiments":     func() []models.Sentiment { return models.Sentiments },
	"priorities":     func() []models.Priority { return models.Priorities },
}

func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// pageData is passed to every template.
type pageData struct {
	Title  string
	User   string
	Active string
	Notice string
	Error  string
	Data   any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, d pageData) {
	t, ok := s.pages.byName[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	if sess := session.FromContext(r.Context()); sess != nil && d.User == "" {
		d.User = sess.User().DisplayName()
	}
	d.Active = name

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", d); err != nil {
		s.logger.Error("template failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
