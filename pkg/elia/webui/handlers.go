package webui

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eliahq/elia/pkg/elia/store"
)

// handleLogin serves the password form and checks submissions against
// the configured argon2id digest.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		r.ParseForm()
		password := r.FormValue("password")

		if VerifyPassword(password, s.cfg.PasswordHash, s.cfg.PasswordSalt) {
			token := s.sessions.issue()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(sessionTTL),
			})
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		s.logger.Warn("failed dashboard login", "remote", r.RemoteAddr)
		s.renderTemplate(w, "login.html", map[string]any{"Error": "Wrong password."})
		return
	}

	s.renderTemplate(w, "login.html", nil)
}

// handleLogout revokes the session and returns to the login page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.revoke(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleDashboard renders the overview: recent exchanges, the config
// map, filters, and the admin allow-list.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	logs, err := s.store.RecentExchanges(ctx, 10)
	if err != nil {
		s.logger.Error("loading exchange log", "error", err)
	}
	config, err := s.store.AllConfig(ctx)
	if err != nil {
		s.logger.Error("loading config", "error", err)
	}
	filters, err := s.store.AllFilters(ctx)
	if err != nil {
		s.logger.Error("loading filters", "error", err)
	}
	admins, err := s.store.Admins(ctx)
	if err != nil {
		s.logger.Error("loading admins", "error", err)
	}

	s.renderTemplate(w, "dashboard.html", map[string]any{
		"Logs":    logs,
		"Config":  config,
		"Filters": filters,
		"Admins":  admins,
	})
}

// handleConfigUpdate replaces one configuration value. reply_chance is
// validated here so live traffic never sees an unparsable probability
// through this surface.
func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.ParseForm()
	key := strings.TrimSpace(r.FormValue("key"))
	value := r.FormValue("value")
	if key == "" {
		http.Error(w, "Missing key", http.StatusBadRequest)
		return
	}

	if key == store.KeyReplyChance {
		p, err := strconv.ParseFloat(value, 64)
		if err != nil || p < 0 || p > 1 {
			http.Error(w, "reply_chance must be a number in [0,1]", http.StatusBadRequest)
			return
		}
	}

	if err := s.store.SetConfig(r.Context(), key, value); err != nil {
		s.logger.Error("config update failed", "key", key, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("config updated", "key", key)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleFilterAdd inserts a filter rule.
func (s *Server) handleFilterAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.ParseForm()
	pattern := strings.TrimSpace(r.FormValue("pattern"))
	direction := r.FormValue("direction")
	if pattern == "" {
		http.Error(w, "Missing pattern", http.StatusBadRequest)
		return
	}

	if err := s.store.AddFilter(r.Context(), pattern, direction); err != nil {
		s.logger.Error("filter add failed", "error", err)
		http.Error(w, "Bad filter", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleFilterDelete removes a filter rule by id.
func (s *Server) handleFilterDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.ParseForm()
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad id", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteFilter(r.Context(), id); err != nil {
		s.logger.Error("filter delete failed", "id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAdminAdd grants a user privileged command access.
func (s *Server) handleAdminAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.ParseForm()
	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		http.Error(w, "Missing user id", http.StatusBadRequest)
		return
	}

	if err := s.store.AddAdmin(r.Context(), userID); err != nil {
		s.logger.Error("admin add failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("admin added", "user_id", userID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAdminDelete revokes privileged command access.
func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.ParseForm()
	userID := strings.TrimSpace(r.FormValue("user_id"))

	if err := s.store.RemoveAdmin(r.Context(), userID); err != nil {
		s.logger.Error("admin remove failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("admin removed", "user_id", userID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleMemories renders all stored memory facts.
func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	facts, err := s.store.AllFacts(r.Context())
	if err != nil {
		s.logger.Error("loading facts", "error", err)
	}
	s.renderTemplate(w, "memories.html", map[string]any{"Facts": facts})
}
