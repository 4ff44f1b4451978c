package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Settings.Snapshot())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(r.Body, &values); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Settings.Apply(r.Context(), values); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Settings.Snapshot())
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Settings.Set(r.Context(), chi.URLParam(r, "key"), payload.Value); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Settings.Snapshot())
}
