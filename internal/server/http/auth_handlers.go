package httpserver

import (
	"errors"
	"net/http"

	"github.com/and161185/noteshub/internal/convert"
	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/service"
)

func loginResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, errs.ErrAccountRestricted):
		return "restricted"
	case errors.Is(err, errs.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errs.ErrValidation):
		return "validation"
	case errors.Is(err, errs.ErrAlreadyExists):
		return "conflict"
	default:
		return "error"
	}
}

func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, status int, sess service.Session, err error) {
	s.metrics.Logins.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, status, convert.ToAuth(sess.Tokens, sess.User))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req convert.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, false)
		return
	}
	sess, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	s.respondSession(w, r, http.StatusCreated, sess, err)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req convert.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, false)
		return
	}
	sess, err := s.auth.Login(r.Context(), req.Email, req.Password, r.RemoteAddr)
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.GoogleEnabled() {
		s.writeError(w, r, errs.ErrNotFound, false)
		return
	}
	var req convert.GoogleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, false)
		return
	}
	sess, err := s.auth.GoogleLogin(r.Context(), req.IDToken)
	s.respondSession(w, r, http.StatusOK, sess, err)
}
