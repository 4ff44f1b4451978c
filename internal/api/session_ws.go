package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/idgen"
	"github.com/flitsinc/glanced/internal/logging"
	"github.com/flitsinc/glanced/internal/pagination"
	"github.com/flitsinc/glanced/internal/session"
	"github.com/flitsinc/glanced/internal/settings"
)

type wsWriter interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

type wsReader interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
}

// wsPeer serializes writes from the session pipeline and the command loop.
type wsPeer struct {
	mu sync.Mutex
	w  wsWriter
}

func (p *wsPeer) send(ctx context.Context, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Write(ctx, websocket.MessageText, data)
}

type wsMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Items     any               `json:"items,omitempty"`
	Page      *pagination.State `json:"page,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type wsCommand struct {
	Type  string        `json:"type"`
	Event session.Event `json:"event"`
}

// wsConsumer forwards item lists to the peer. A failed write means the
// client is gone.
type wsConsumer[T any] struct {
	peer      *wsPeer
	sessionID string
}

func (c *wsConsumer[T]) Deliver(ctx context.Context, items []T) error {
	if err := c.peer.send(ctx, wsMessage{Type: "items", SessionID: c.sessionID, Items: items}); err != nil {
		return fmt.Errorf("%w: %v", session.ErrConsumerGone, err)
	}
	return nil
}

func sessionConfigFromQuery(q url.Values, snap settings.Snapshot) (session.Config, error) {
	surface, err := content.ParseSurface(q.Get("surface"))
	if err != nil {
		return session.Config{}, err
	}
	kind := session.KindClient
	if raw := q.Get("kind"); raw != "" {
		if kind, err = session.ParseKind(raw); err != nil {
			return session.Config{}, err
		}
	}
	count := session.Unlimited
	if raw := q.Get("count"); raw != "" {
		if count, err = strconv.Atoi(raw); err != nil {
			return session.Config{}, fmt.Errorf("count: %w", err)
		}
	}
	split := false
	if raw := q.Get("split"); raw != "" {
		if split, err = strconv.ParseBool(raw); err != nil {
			return session.Config{}, fmt.Errorf("split: %w", err)
		}
	}
	return session.NewConfig(session.Config{
		Surface:      surface,
		Count:        count,
		Kind:         kind,
		Package:      q.Get("package"),
		SplitCapable: split,
		Settings:     snap,
	})
}

func (s *Server) sessionDeps() session.Deps {
	deps := session.Deps{Pool: s.Pool}
	if s.Settings != nil {
		deps.Settings = s.Settings
	}
	if s.Ambient != nil {
		deps.Ambient = s.Ambient
	}
	return deps
}

// openSession builds the session for cfg with the peer as its consumer.
func (s *Server) openSession(cfg session.Config, id string, peer *wsPeer) (session.Handle, error) {
	opts := append([]session.Option{session.WithID(id)}, s.SessionOptions...)
	if cfg.Kind == session.KindPagedWidget {
		return session.New[session.PagedView](cfg, session.NewPagedWidgetStrategy(), &wsConsumer[session.PagedView]{peer: peer, sessionID: id}, s.sessionDeps(), opts...)
	}
	strategy, err := session.NewPageStrategy(cfg.Kind)
	if err != nil {
		return nil, err
	}
	return session.New[content.Page](cfg, strategy, &wsConsumer[content.Page]{peer: peer, sessionID: id}, s.sessionDeps(), opts...)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	if s.Pool == nil || s.Sessions == nil {
		writeError(w, http.StatusInternalServerError, errNotFound("session runtime"))
		return
	}
	snap := settings.Defaults()
	if s.Settings != nil {
		snap = s.Settings.Snapshot()
	}
	cfg, err := sessionConfigFromQuery(r.URL.Query(), snap)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	peer := &wsPeer{w: conn}
	id := idgen.New()
	if err := peer.send(ctx, wsMessage{Type: "session", SessionID: id}); err != nil {
		return
	}
	h, err := s.openSession(cfg, id, peer)
	if err != nil {
		_ = peer.send(ctx, wsMessage{Type: "error", Error: err.Error()})
		_ = conn.Close(websocket.StatusPolicyViolation, "invalid session")
		return
	}
	if err := s.Sessions.Add(h); err != nil {
		h.Destroy()
		_ = conn.Close(websocket.StatusInternalError, "session registry")
		return
	}
	defer h.Destroy()

	if err := serveSessionCommands(ctx, conn, peer, h); err != nil && !errors.Is(err, context.Canceled) {
		log := logging.Component("api")
		log.Debug().Err(err).Str("session", id).Msg("session socket closed")
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

// serveSessionCommands reads client commands until the socket closes or the
// session is destroyed.
func serveSessionCommands(ctx context.Context, reader wsReader, peer *wsPeer, h session.Handle) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		_, data, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			if err := peer.send(ctx, wsMessage{Type: "error", Error: "malformed command"}); err != nil {
				return err
			}
			continue
		}
		reply := runCommand(ctx, h, cmd)
		if reply == nil {
			continue
		}
		reply.SessionID = h.ID()
		if err := peer.send(ctx, *reply); err != nil {
			return err
		}
	}
}

func runCommand(ctx context.Context, h session.Handle, cmd wsCommand) *wsMessage {
	var (
		st  pagination.State
		err error
	)
	switch cmd.Type {
	case "event":
		err = h.NotifyEvent(ctx, cmd.Event)
	case "update":
		err = h.RequestUpdate(ctx)
	case "reload":
		h.ForceReload()
	case "next":
		if st, err = h.Next(); err == nil {
			return &wsMessage{Type: "page", Page: &st}
		}
	case "previous":
		if st, err = h.Previous(); err == nil {
			return &wsMessage{Type: "page", Page: &st}
		}
	default:
		err = fmt.Errorf("unknown command %q", cmd.Type)
	}
	if err != nil {
		return &wsMessage{Type: "error", Error: err.Error()}
	}
	return nil
}
