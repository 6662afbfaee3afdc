package httpserver

import (
	"net/http"

	"github.com/and161185/noteshub/internal/convert"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Profile(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUser(u))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req convert.ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, false)
		return
	}
	u, err := s.users.UpdateProfile(r.Context(), principalFrom(r.Context()), convert.FromProfileRequest(req))
	if err != nil {
		s.writeError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUser(u))
}
