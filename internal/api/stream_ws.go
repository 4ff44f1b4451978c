package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/flitsinc/glanced/internal/eventbus"
)

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	signals, err := s.Bus.List(r.Context(), q.Get("stream"), eventbus.ListOptions{
		Reader:   q.Get("reader"),
		SourceID: q.Get("source"),
		Limit:    parseInt(q.Get("limit"), 50),
		Order:    q.Get("order"),
		Unread:   q.Get("unread") == "true",
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if signals == nil {
		signals = []eventbus.Signal{}
	}
	writeJSON(w, http.StatusOK, signals)
}

func (s *Server) handleAckSignals(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Stream string   `json:"stream"`
		IDs    []string `json:"ids"`
		Reader string   `json:"reader"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Bus.Ack(r.Context(), payload.Stream, payload.IDs, payload.Reader); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSignalWS(w http.ResponseWriter, r *http.Request) {
	if s.Bus == nil {
		writeError(w, http.StatusInternalServerError, errNotFound("signal bus"))
		return
	}

	filter := eventbus.Filter{
		Streams:  splitComma(r.URL.Query().Get("streams")),
		SourceID: r.URL.Query().Get("source"),
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	// Providers only listen; CloseRead cancels ctx when they hang up.
	ctx := conn.CloseRead(r.Context())
	if err := streamSignals(ctx, s.Bus, filter, conn); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func streamSignals(ctx context.Context, bus *eventbus.Bus, filter eventbus.Filter, writer wsWriter) error {
	sub := bus.Subscribe(ctx, filter)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-sub:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(sig)
			if err != nil {
				return err
			}
			if err := writer.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
		}
	}
}
