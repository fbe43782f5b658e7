// Package dashboard serves the web dashboard. Every request gets its own
// session and record store built from the request cookies, so the server
// keeps no per-user state.
package dashboard

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/internal/backend"
	"github.com/tagging-ai/tagboard/internal/records"
	"github.com/tagging-ai/tagboard/internal/session"
	"github.com/tagging-ai/tagboard/pkg/models"
)

// Uploader stores an export and returns a download link.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (*url.URL, error)
}

// Settings loads and saves user preferences.
type Settings interface {
	Load() (models.Settings, error)
	Save(models.Settings) error
}

// Config wires the dashboard to its collaborators. Only Backend and
// Settings are required.
type Config struct {
	Backend        *backend.Client
	Settings       Settings
	Verifier       session.Verifier
	Archive        records.Archive
	Uploader       Uploader
	CookieSecure   bool
	CookieTTL      time.Duration
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server is the dashboard http.Handler.
type Server struct {
	cfg    Config
	logger *zap.Logger
	pages  *pages
	router chi.Router
}

// New builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p, err := loadPages()
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: cfg.Logger, pages: p}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS()))))

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/dashboard", http.StatusSeeOther)
		})
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/history", s.handleHistory)
			r.Get("/history/{id}", s.handleHistory)
			r.Post("/history/{id}/edit", s.handleEdit)
			r.Post("/history/{id}/delete", s.handleDelete)
			r.Get("/single", s.handleSinglePage)
			r.Post("/single", s.handleSingle)
			r.Get("/batch", s.handleBatchPage)
			r.Get("/export.csv", s.handleExportCSV)
			r.Get("/export.xlsx", s.handleExportXLSX)
			r.Get("/settings", s.handleSettingsPage)
			r.Post("/settings", s.handleSettings)
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.cfg.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			r.Use(s.requireAPIAuth)
			r.Get("/history", s.handleAPIHistory)
			r.Get("/stats", s.handleAPIStats)
			r.Post("/batch", s.handleAPIBatch)
		})
	})

	s.router = r
}

// accessLog logs one line per request at debug level.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// withSession attaches a session store backed by the request cookies and
// the Authorization header, and a record store using its token.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts := []session.Option{
			session.WithStorage(
				&session.CookieStorage{W: w, R: r, Secure: s.cfg.CookieSecure, TTL: s.cfg.CookieTTL},
				headerStorage{r: r},
			),
			session.WithLogger(s.logger),
		}
		if s.cfg.Verifier != nil {
			opts = append(opts, session.WithVerifier(s.cfg.Verifier))
		}
		sess := session.New(s.cfg.Backend, opts...)
		sess.Probe()

		ctx := session.WithStore(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.IsAuthenticated(r.Context()) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !session.IsAuthenticated(r.Context()) {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recordsFor builds a record store that talks to the backend with the
// request's session token.
func (s *Server) recordsFor(r *http.Request) *records.Store {
	opts := []records.Option{records.WithLogger(s.logger)}
	if s.cfg.Archive != nil && s.settings().SaveHistory {
		opts = append(opts, records.WithArchive(s.cfg.Archive))
	}
	return records.New(s.clientFor(r), opts...)
}

func (s *Server) clientFor(r *http.Request) *backend.Client {
	return s.cfg.Backend.WithTokens(session.FromContext(r.Context()))
}

func (s *Server) settings() models.Settings {
	st, err := s.cfg.Settings.Load()
	if err != nil {
		s.logger.Warn("failed to load settings", zap.Error(err))
	}
	return st
}

// headerStorage reads a bearer token sent by API clients. It never writes,
// and its token is not turned into a cookie.
type headerStorage struct {
	r *http.Request
}

func (h headerStorage) Load() (session.Stored, error) {
	return session.Stored{Token: session.BearerToken(h.r)}, nil
}

func (headerStorage) Save(session.Stored) error { return nil }
func (headerStorage) Clear() error              { return nil }
func (headerStorage) SourceOnly()               {}
