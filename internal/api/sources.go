package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/pool"
)

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Pool.Sources())
}

func (s *Server) handleRegisterSource(w http.ResponseWriter, r *http.Request) {
	var src pool.Source
	if err := decodeJSON(r.Body, &src); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	saved, err := s.Pool.Register(r.Context(), src)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	if err := s.Pool.Remove(r.Context(), chi.URLParam(r, "sourceID")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePublishItems(w http.ResponseWriter, r *http.Request) {
	var items []content.Item
	if err := decodeJSON(r.Body, &items); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Pool.Publish(chi.URLParam(r, "sourceID"), items); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": s.Pool.Snapshot().Version})
}

func (s *Server) handlePutCompatibility(w http.ResponseWriter, r *http.Request) {
	var report content.Compatibility
	if err := decodeJSON(r.Body, &report); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.Pool.SetCompatibility(chi.URLParam(r, "package"), report)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
