package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flitsinc/glanced/internal/logging"
	"github.com/flitsinc/glanced/internal/pagination"
)

var (
	ErrDuplicateSession = errors.New("session already registered")
	ErrSessionNotFound  = errors.New("session not found")
)

// Handle is the type-erased view of a Session the supervisor and transports use.
type Handle interface {
	ID() string
	Kind() Kind
	State() State
	Config() Config
	Done() <-chan struct{}
	Resume()
	Pause()
	Destroy()
	ForceReload()
	RequestUpdate(ctx context.Context) error
	NotifyEvent(ctx context.Context, ev Event) error
	Next() (pagination.State, error)
	Previous() (pagination.State, error)
	Delivered() any
}

var _ Handle = (*Session[PagedView])(nil)

type Info struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	State  State  `json:"state"`
	Config Config `json:"config"`
}

// Supervisor tracks live sessions. Sessions that destroy themselves are
// removed once their Done channel closes.
type Supervisor struct {
	mu       sync.RWMutex
	sessions map[string]Handle
	log      zerolog.Logger
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		sessions: make(map[string]Handle),
		log:      logging.Component("supervisor"),
	}
}

func (s *Supervisor) Add(h Handle) error {
	s.mu.Lock()
	if _, ok := s.sessions[h.ID()]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateSession, h.ID())
	}
	s.sessions[h.ID()] = h
	s.mu.Unlock()

	go func() {
		<-h.Done()
		s.mu.Lock()
		if cur, ok := s.sessions[h.ID()]; ok && cur == h {
			delete(s.sessions, h.ID())
		}
		s.mu.Unlock()
		s.log.Debug().Str("session", h.ID()).Msg("session reaped")
	}()
	return nil
}

func (s *Supervisor) Get(id string) (Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.sessions[id]
	return h, ok
}

// Remove forgets a session without destroying it.
func (s *Supervisor) Remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Supervisor) Destroy(id string) error {
	s.mu.Lock()
	h, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	h.Destroy()
	return nil
}

func (s *Supervisor) DestroyAll() {
	s.mu.Lock()
	all := make([]Handle, 0, len(s.sessions))
	for _, h := range s.sessions {
		all = append(all, h)
	}
	s.sessions = make(map[string]Handle)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range all {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			h.Destroy()
		}(h)
	}
	wg.Wait()
	if len(all) > 0 {
		s.log.Info().Int("sessions", len(all)).Msg("destroyed all sessions")
	}
}

func (s *Supervisor) List() []Info {
	s.mu.RLock()
	out := make([]Info, 0, len(s.sessions))
	for _, h := range s.sessions {
		out = append(out, Info{ID: h.ID(), Kind: h.Kind(), State: h.State(), Config: h.Config()})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Supervisor) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
