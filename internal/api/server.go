package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flitsinc/glanced/internal/eventbus"
	"github.com/flitsinc/glanced/internal/pool"
	"github.com/flitsinc/glanced/internal/session"
	"github.com/flitsinc/glanced/internal/settings"
)

type Server struct {
	Pool     *pool.Pool
	Bus      *eventbus.Bus
	Settings *settings.Store
	Sessions *session.Supervisor
	Ambient  *session.Ambient

	// SessionOptions apply to every session opened over the websocket.
	SessionOptions []session.Option
	StartedAt      time.Time
	Info           DiagnosticsInfo
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/diagnostics", s.handleDiagnostics)

		r.Get("/ambient", s.handleGetAmbient)
		r.Put("/ambient", s.handlePutAmbient)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Get("/ws", s.handleSessionWS)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", s.handleDestroySession)
				r.Get("/items", s.handleSessionItems)
				r.Post("/events", s.handleSessionEvent)
				r.Post("/update", s.handleSessionUpdate)
				r.Post("/reload", s.handleSessionReload)
				r.Post("/next", s.handleSessionNext)
				r.Post("/previous", s.handleSessionPrevious)
			})
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/", s.handleRegisterSource)
			r.Delete("/{sourceID}", s.handleRemoveSource)
			r.Put("/{sourceID}/items", s.handlePublishItems)
		})
		r.Put("/compatibility/{package}", s.handlePutCompatibility)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handlePutSettings)
			r.Put("/{key}", s.handlePutSetting)
		})

		r.Route("/signals", func(r chi.Router) {
			r.Get("/", s.handleListSignals)
			r.Post("/ack", s.handleAckSignals)
			r.Get("/ws", s.handleSignalWS)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleGetAmbient(w http.ResponseWriter, r *http.Request) {
	if s.Ambient == nil {
		writeError(w, http.StatusNotImplemented, errNotFound("ambient state"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playing": s.Ambient.Playing()})
}

func (s *Server) handlePutAmbient(w http.ResponseWriter, r *http.Request) {
	if s.Ambient == nil {
		writeError(w, http.StatusNotImplemented, errNotFound("ambient state"))
		return
	}
	var payload struct {
		Playing bool `json:"playing"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.Ambient.Set(payload.Playing)
	writeJSON(w, http.StatusOK, map[string]any{"playing": payload.Playing})
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitComma(value string) []string {
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

func errNotFound(target string) error {
	return notFoundError{msg: target + " not found"}
}

// statusFor maps domain sentinels to HTTP statuses.
func statusFor(err error) int {
	var nf notFoundError
	switch {
	case errors.As(err, &nf),
		errors.Is(err, pool.ErrUnknownSource),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, settings.ErrUnknownKey):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotPaged):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
