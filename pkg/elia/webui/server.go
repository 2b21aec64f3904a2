// Package webui implements the admin dashboard for Elia.
// Server-rendered Go templates, no JavaScript build step. Operators
// use it to edit runtime configuration, manage filters and the admin
// allow-list, and inspect the exchange log and memory facts, all
// concurrently with live message traffic.
package webui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/eliahq/elia/pkg/elia/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds dashboard configuration.
type Config struct {
	// Enabled turns the dashboard on/off.
	Enabled bool

	// Address is the listen address (default ":5000").
	Address string

	// PasswordHash and PasswordSalt are the base64 argon2id digest of
	// the operator password.
	PasswordHash string
	PasswordSalt string
}

// Server is the dashboard HTTP server. Its handlers run concurrently
// with each other and with message handling; every mutation goes
// through the record store, so the next message evaluation observes it.
type Server struct {
	cfg       Config
	store     *store.Store
	logger    *slog.Logger
	templates *template.Template
	server    *http.Server
	sessions  *sessions
}

// New creates a dashboard server backed by the given record store.
func New(cfg Config, st *store.Store, logger *slog.Logger) (*Server, error) {
	if cfg.Address == "" {
		cfg.Address = ":5000"
	}
	if logger == nil {
		logger = slog.Default()
	}

	funcMap := template.FuncMap{
		"timeAgo": timeAgo,
		"shorten": shorten,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}

	return &Server{
		cfg:       cfg,
		store:     st,
		logger:    logger.With("component", "webui"),
		templates: tmpl,
		sessions:  newSessions(),
	}, nil
}

// routes builds the handler mux. Everything except the login page sits
// behind the session check.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.requireSession(s.handleLogout))
	mux.HandleFunc("/", s.requireSession(s.handleDashboard))
	mux.HandleFunc("/config", s.requireSession(s.handleConfigUpdate))
	mux.HandleFunc("/filters/add", s.requireSession(s.handleFilterAdd))
	mux.HandleFunc("/filters/delete", s.requireSession(s.handleFilterDelete))
	mux.HandleFunc("/admins/add", s.requireSession(s.handleAdminAdd))
	mux.HandleFunc("/admins/delete", s.requireSession(s.handleAdminDelete))
	mux.HandleFunc("/memories", s.requireSession(s.handleMemories))

	return mux
}

// Start begins serving the dashboard.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("dashboard starting", "address", s.cfg.Address)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("dashboard server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the dashboard.
func (s *Server) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
		s.logger.Info("dashboard stopped")
	}
}

// requireSession redirects unauthenticated requests to the login page.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || !s.sessions.valid(cookie.Value) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// renderTemplate renders an HTML template with the given data.
func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template render error", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ---------- Template helpers ----------

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func shorten(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
