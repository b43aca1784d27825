// internal/httpserver/routes_auth.go
//
// Account endpoints: register, login, logout, me, and public user lookup.
// Register and login set the auth cookie and also return the token for
// bearer clients.

package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/ecosort/internal/accounts"
)

// userRes is the account payload returned by auth endpoints.
type userRes struct {
	*accounts.User
	Token string `json:"token,omitempty"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// mountAuthRoutes registers /auth/* and /users/{id}.
func (s *Server) mountAuthRoutes(r chi.Router) {
	r.With(s.limiter.middleware).Post("/auth/register", s.handleRegister)
	r.With(s.limiter.middleware).Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.With(s.requireAuth()).Get("/auth/me", s.handleMe)
	r.Get("/users/{id}", s.handleGetUser)
}

// handleRegister creates a user, signs a JWT and sets the auth cookie.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body accounts.Registration
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.accounts.Register(r.Context(), body)
	switch {
	case errors.Is(err, accounts.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	case errors.Is(err, accounts.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("register")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	s.issueToken(w, r, http.StatusCreated, u)
}

// handleLogin authenticates by email + password and sets the auth cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.accounts.Authenticate(r.Context(), body.Email, body.Password)
	switch {
	case errors.Is(err, accounts.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Missing credentials")
		return
	case errors.Is(err, accounts.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	s.issueToken(w, r, http.StatusOK, u)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, code int, u *accounts.User) {
	tok, exp, err := s.signJWT(u.ID, u.Name)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("sign jwt")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setAuthCookie(w, tok, exp)
	writeJSON(w, code, userRes{User: u, Token: tok})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.writeUser(w, r, currentUser(r).ID)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.writeUser(w, r, chi.URLParam(r, "id"))
}

func (s *Server) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := s.accounts.FindByID(r.Context(), id)
	if errors.Is(err, accounts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("user", id).Msg("load user")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
