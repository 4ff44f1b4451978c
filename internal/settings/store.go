package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flitsinc/glanced/internal/logging"
)

// Backend persists raw setting values. *state.Store satisfies it.
type Backend interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Store holds the live settings snapshot and fans changes out to subscribers.
type Store struct {
	backend Backend
	log     zerolog.Logger

	mu      sync.RWMutex
	current Snapshot
	subs    map[uint64]chan Snapshot
	nextID  uint64
}

// NewStore loads persisted values over the defaults. backend may be nil.
// Malformed persisted values are logged and skipped.
func NewStore(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{
		backend: backend,
		log:     logging.Component("settings"),
		current: Defaults(),
		subs:    map[uint64]chan Snapshot{},
	}
	if backend == nil {
		return s, nil
	}
	values, err := backend.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	snap, err := s.current.Apply(values)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed persisted settings")
	}
	s.current = snap
	return s, nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.Apply(ctx, map[string]string{key: value})
}

// Apply validates all values first and writes nothing if any is rejected.
func (s *Store) Apply(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.current.Apply(values)
	if err != nil {
		return err
	}
	if s.backend != nil {
		for k, v := range values {
			if err := s.backend.PutSetting(ctx, k, v); err != nil {
				return fmt.Errorf("persist setting: %w", err)
			}
		}
	}
	if next == s.current {
		return nil
	}
	s.current = next
	for _, ch := range s.subs {
		offer(ch, next)
	}
	s.log.Debug().Interface("settings", next).Msg("settings changed")
	return nil
}

// Subscribe returns a latest-value channel primed with the current snapshot.
// It is closed when ctx ends.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.current
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()
	return ch
}

// offer replaces any unread value in a one-slot channel. Callers hold the write lock.
func offer(ch chan Snapshot, v Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
