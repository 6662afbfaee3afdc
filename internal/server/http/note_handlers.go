package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/and161185/noteshub/internal/convert"
)

func (s *Server) noteError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, err, true)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req convert.NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.noteError(w, r, err)
		return
	}
	n, err := s.notes.Create(r.Context(), principalFrom(r.Context()), convert.FromNoteRequest(req))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToNote(n))
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	ns, err := s.notes.ListMine(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToNotes(ns))
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	n, err := s.notes.Get(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToNote(n))
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	var req convert.NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.noteError(w, r, err)
		return
	}
	n, err := s.notes.Update(r.Context(), principalFrom(r.Context()), id, convert.FromNoteRequest(req))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToNote(n))
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	if err := s.notes.Delete(r.Context(), principalFrom(r.Context()), id); err != nil {
		s.noteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	n, err := s.notes.Share(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToNote(n))
}

func (s *Server) handleUnshareNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	n, err := s.notes.Unshare(r.Context(), principalFrom(r.Context()), id)
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToNote(n))
}

// handleGetShared serves a note to anyone holding its share token. No credential is read.
func (s *Server) handleGetShared(w http.ResponseWriter, r *http.Request) {
	n, err := s.notes.GetShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.noteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToSharedNote(n))
}
