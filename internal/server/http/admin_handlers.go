package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/and161185/noteshub/internal/convert"
	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/service"
)

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errs.ErrValidation, name)
	}
	return v, nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.admin.ListUsers(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUserSummaries(list))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.admin.Stats(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToStats(st))
}

func (s *Server) handleRestrict(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	restrict, err := queryBool(r, "restrict", true)
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	u, err := s.admin.SetRestricted(r.Context(), principalFrom(r.Context()), id, restrict)
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUser(u))
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	role, err := service.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	add, err := queryBool(r, "add", true)
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	u, err := s.admin.ChangeRole(r.Context(), principalFrom(r.Context()), id, role, add)
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUser(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	if err := s.admin.DeleteUser(r.Context(), principalFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
