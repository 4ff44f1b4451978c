package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flitsinc/glanced/internal/session"
)

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (session.Handle, bool) {
	id := chi.URLParam(r, "sessionID")
	if s.Sessions == nil {
		writeError(w, http.StatusNotFound, errNotFound("session "+id))
		return nil, false
	}
	h, ok := s.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound("session "+id))
		return nil, false
	}
	return h, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.Sessions == nil {
		writeJSON(w, http.StatusOK, []session.Info{})
		return
	}
	writeJSON(w, http.StatusOK, s.Sessions.List())
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := s.Sessions.Destroy(h.ID()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessionItems(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": h.ID(),
		"state":      h.State(),
		"items":      h.Delivered(),
	})
}

func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var ev session.Event
	if err := decodeJSON(r.Body, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.NotifyEvent(r.Context(), ev); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": h.State()})
}

func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := h.RequestUpdate(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Server) handleSessionReload(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	h.ForceReload()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Server) handleSessionNext(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	st, err := h.Next()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSessionPrevious(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	st, err := h.Previous()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
