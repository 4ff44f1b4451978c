package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/idgen"
	"github.com/flitsinc/glanced/internal/logging"
	"github.com/flitsinc/glanced/internal/pagination"
	"github.com/flitsinc/glanced/internal/pool"
	"github.com/flitsinc/glanced/internal/settings"
)

const (
	DefaultDebounce      = 50 * time.Millisecond
	DefaultRefreshPeriod = time.Minute
	DefaultMaxRetries    = 3
)

var ErrNotPaged = errors.New("session does not paginate")

// errHeld stops a delivery that lost the race with Pause or Destroy.
var errHeld = errors.New("delivery held")

// Upstream is the slice of the pool a session uses. *pool.Pool satisfies it.
type Upstream interface {
	Subscribe(ctx context.Context) <-chan pool.Snapshot
	SetVisible(ctx context.Context, sessionID string, visible bool) bool
	Forget(ctx context.Context, sessionID string)
	RequestUpdate(ctx context.Context, sourceIDs []string) ([]string, error)
	NotifyClick(ctx context.Context, uid, actionUID string) error
	NotifyDismiss(ctx context.Context, uid string) error
}

type SettingsFeed interface {
	Subscribe(ctx context.Context) <-chan settings.Snapshot
}

type AmbientFeed interface {
	Subscribe(ctx context.Context) <-chan bool
}

// Deps are the live inputs of a session. Settings and Ambient are optional;
// without Settings the snapshot in Config never changes.
type Deps struct {
	Pool     Upstream
	Settings SettingsFeed
	Ambient  AmbientFeed
}

type options struct {
	id            string
	debounce      time.Duration
	refreshPeriod time.Duration
	newBackOff    func() backoff.BackOff
	nowFn         func() time.Time
}

type Option func(*options)

func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithRefreshPeriod overrides the periodic update interval. Zero disables it.
func WithRefreshPeriod(d time.Duration) Option {
	return func(o *options) {
		o.refreshPeriod = d
	}
}

// WithBackOff sets the retry policy for failed deliveries.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *options) {
		o.newBackOff = fn
	}
}

func WithClock(nowFn func() time.Time) Option {
	return func(o *options) {
		if nowFn != nil {
			o.nowFn = nowFn
		}
	}
}

func newDeliveryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithMaxRetries(b, DefaultMaxRetries)
}

// Session is one consumer's live view. T is the consumer's item shape.
type Session[T any] struct {
	id       string
	strategy Strategy[T]
	consumer Consumer[T]
	deps     Deps
	opts     options
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
	kick   chan struct{}

	// deliverMu is held across each Consumer.Deliver attempt. Pause takes it
	// so no attempt starts or finishes on the consumer after Pause returns.
	deliverMu sync.Mutex

	mu           sync.Mutex
	state        State
	cfg          Config
	resumedOnce  bool
	last         []T
	delivered    bool
	pending      []T
	hasPending   bool
	pendingForce bool
	forceReload  int64
	wantForce    bool
	wantCompute  bool
	wantFlush    bool
	sources      []string
}

func New[T any](cfg Config, strategy Strategy[T], consumer Consumer[T], deps Deps, opts ...Option) (*Session[T], error) {
	cfg, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	if strategy == nil || consumer == nil || deps.Pool == nil {
		return nil, fmt.Errorf("%w: strategy, consumer and pool are required", ErrInvalidConfig)
	}
	if strategy.Kind() != cfg.Kind {
		return nil, fmt.Errorf("%w: %s strategy for %s session", ErrInvalidConfig, strategy.Kind(), cfg.Kind)
	}

	o := options{
		debounce:      DefaultDebounce,
		refreshPeriod: DefaultRefreshPeriod,
		newBackOff:    newDeliveryBackOff,
		nowFn:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = idgen.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session[T]{
		id:       o.id,
		strategy: strategy,
		consumer: consumer,
		deps:     deps,
		opts:     o,
		log:      logging.Component("session").With().Str("session", o.id).Str("kind", string(cfg.Kind)).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		kick:     make(chan struct{}, 1),
		state:    StateCreated,
		cfg:      cfg,
	}

	s.wg.Add(1)
	go s.run()
	if strategy.Capabilities().Periodic && o.refreshPeriod > 0 {
		s.wg.Add(1)
		go s.refreshLoop()
	}
	s.log.Debug().Str("surface", string(cfg.Surface)).Int("count", cfg.Count).Msg("session created")
	return s, nil
}

func (s *Session[T]) ID() string { return s.id }

func (s *Session[T]) Kind() Kind { return s.strategy.Kind() }

// Done is closed once the session is destroyed and its goroutines have exited.
func (s *Session[T]) Done() <-chan struct{} { return s.done }

func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session[T]) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Latest returns the last delivered list, or nil before the first delivery.
func (s *Session[T]) Latest() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.delivered {
		return nil
	}
	return slices.Clone(s.last)
}

// Delivered is Latest without the type parameter, for transports.
func (s *Session[T]) Delivered() any {
	return s.Latest()
}

func (s *Session[T]) ForceReloadAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceReload
}

// Resume marks the session visible. Every resume after the first also asks
// providers for fresh content.
func (s *Session[T]) Resume() {
	s.mu.Lock()
	changed, err := transition(s.id, s.state, StateResumed)
	if err != nil || !changed {
		s.mu.Unlock()
		if err != nil {
			s.log.Debug().Err(err).Msg("resume ignored")
		}
		return
	}
	s.state = StateResumed
	again := s.resumedOnce
	s.resumedOnce = true
	s.wantFlush = true
	s.deps.Pool.SetVisible(s.ctx, s.id, true)
	if again {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.RequestUpdate(s.ctx); err != nil && s.ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("update on resume failed")
			}
		}()
	}
	s.mu.Unlock()
	s.signal()
}

// Pause holds new content until the next Resume. It waits for an in-flight
// delivery, so it must not be called from inside Consumer.Deliver.
func (s *Session[T]) Pause() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := transition(s.id, s.state, StatePaused)
	if err != nil || !changed {
		if err != nil {
			s.log.Debug().Err(err).Msg("pause ignored")
		}
		return
	}
	s.state = StatePaused
	s.deps.Pool.SetVisible(s.ctx, s.id, false)
}

// Destroy stops the session and waits for its goroutines. No delivery happens
// after it returns. It must not be called from inside Consumer.Deliver.
func (s *Session[T]) Destroy() {
	s.destroy(true)
}

func (s *Session[T]) destroy(wait bool) {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		if wait {
			<-s.done
		}
		return
	}
	s.state = StateDestroyed
	s.mu.Unlock()
	s.cancel()

	finish := func() {
		s.wg.Wait()
		s.deps.Pool.Forget(context.Background(), s.id)
		if r, ok := s.strategy.(Releaser); ok {
			r.Release()
		}
		close(s.done)
		s.log.Debug().Msg("session destroyed")
	}
	if wait {
		finish()
		return
	}
	go finish()
}

// RequestUpdate asks the sources on the current pages to republish. The result
// arrives through the normal pipeline.
func (s *Session[T]) RequestUpdate(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return nil
	}
	sources := slices.Clone(s.sources)
	s.mu.Unlock()

	if _, err := s.deps.Pool.RequestUpdate(ctx, sources); err != nil {
		return fmt.Errorf("request update: %w", err)
	}
	return nil
}

// NotifyEvent routes consumer events. Unknown kinds are ignored.
func (s *Session[T]) NotifyEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventSurfaceShown:
		s.Resume()
	case EventSurfaceHidden:
		s.Pause()
	case EventInteraction:
		uid, actionUID := ev.ItemID, ev.ActionID
		if content.IsBlankID(uid) {
			// Placeholder pages belong to no provider; the tap goes to the action.
			if actionUID == "" {
				return nil
			}
			uid, actionUID = actionUID, ""
		}
		return s.deps.Pool.NotifyClick(ctx, uid, actionUID)
	case EventDismiss:
		if content.IsBlankID(ev.ItemID) {
			return nil
		}
		return s.deps.Pool.NotifyDismiss(ctx, ev.ItemID)
	default:
		s.log.Debug().Str("event", string(ev.Kind)).Msg("ignoring unknown event")
	}
	return nil
}

// ForceReload recomputes and redelivers even when nothing changed.
func (s *Session[T]) ForceReload() {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	now := s.opts.nowFn().UnixNano()
	if now <= s.forceReload {
		now = s.forceReload + 1
	}
	s.forceReload = now
	s.wantForce = true
	s.mu.Unlock()
	s.signal()
}

// Recompute reruns the pipeline on the current inputs, delivering only if the
// result changed.
func (s *Session[T]) Recompute() {
	s.mu.Lock()
	s.wantCompute = true
	s.mu.Unlock()
	s.signal()
}

func (s *Session[T]) Next() (pagination.State, error) {
	return s.paginate(func(w *pagination.Window) pagination.State { return w.Next() })
}

func (s *Session[T]) Previous() (pagination.State, error) {
	return s.paginate(func(w *pagination.Window) pagination.State { return w.Previous() })
}

func (s *Session[T]) paginate(move func(*pagination.Window) pagination.State) (pagination.State, error) {
	p, ok := s.strategy.(Paginator)
	if !ok {
		return pagination.State{}, fmt.Errorf("%w: %s", ErrNotPaged, s.strategy.Kind())
	}
	st := move(p.Window())
	s.Recompute()
	return st, nil
}

func (s *Session[T]) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Session[T]) run() {
	defer s.wg.Done()

	poolCh := s.deps.Pool.Subscribe(s.ctx)
	var settingsCh <-chan settings.Snapshot
	if s.deps.Settings != nil {
		settingsCh = s.deps.Settings.Subscribe(s.ctx)
	}
	var ambientCh <-chan bool
	if s.deps.Ambient != nil && s.strategy.Capabilities().AmbientAudio {
		ambientCh = s.deps.Ambient.Subscribe(s.ctx)
	}

	var (
		snap     pool.Snapshot
		haveSnap bool
		ambient  bool
		force    bool
		timerC   <-chan time.Time
	)
	timer := time.NewTimer(s.opts.debounce)
	timer.Stop()
	defer timer.Stop()
	arm := func() {
		timer.Reset(s.opts.debounce)
		timerC = timer.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case v, ok := <-poolCh:
			if !ok {
				return
			}
			snap, haveSnap = v, true
			arm()
		case v, ok := <-settingsCh:
			if !ok {
				return
			}
			s.mu.Lock()
			s.cfg = s.cfg.WithSettings(v)
			s.mu.Unlock()
			arm()
		case v, ok := <-ambientCh:
			if !ok {
				return
			}
			if v != ambient {
				ambient = v
				arm()
			}
		case <-s.kick:
			s.mu.Lock()
			wantForce, wantCompute, wantFlush := s.wantForce, s.wantCompute, s.wantFlush
			s.wantForce, s.wantCompute, s.wantFlush = false, false, false
			s.mu.Unlock()
			if wantForce {
				force = true
			}
			if wantForce || wantCompute {
				arm()
			}
			if wantFlush && !s.flush() {
				return
			}
		case <-timerC:
			timerC = nil
			if !haveSnap {
				continue
			}
			if !s.deliver(s.compute(snap, ambient), force) {
				return
			}
			force = false
		}
	}
}

func (s *Session[T]) compute(snap pool.Snapshot, ambient bool) []T {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	res := Pipeline(cfg, s.strategy, snap, ambient)
	if res.Stats.Dropped() > 0 {
		s.log.Debug().Interface("stats", res.Stats).Msg("policy dropped items")
	}

	s.mu.Lock()
	s.sources = content.Sources(res.Pages)
	s.mu.Unlock()
	return res.Items
}

// deliver pushes items unless they equal the last delivery. While paused the
// candidate is held for the next resume. It returns false once the session is
// destroyed.
func (s *Session[T]) deliver(items []T, force bool) bool {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return false
	}
	if !force && s.delivered && s.strategy.Equal(items, s.last) {
		s.pending, s.hasPending, s.pendingForce = nil, false, false
		s.mu.Unlock()
		return true
	}
	if !s.state.CanDeliver() {
		s.pending, s.hasPending, s.pendingForce = items, true, force
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	if err := s.push(items); err != nil {
		if errors.Is(err, errHeld) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.state == StateDestroyed {
				return false
			}
			s.pending, s.hasPending, s.pendingForce = items, true, force
			return true
		}
		if s.ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("consumer unreachable, destroying session")
			s.destroy(false)
		}
		return false
	}

	s.mu.Lock()
	s.last, s.delivered = items, true
	s.pending, s.hasPending, s.pendingForce = nil, false, false
	s.mu.Unlock()
	s.log.Debug().Int("items", len(items)).Bool("forced", force).Msg("delivered")
	return true
}

func (s *Session[T]) flush() bool {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return false
	}
	if !s.hasPending || !s.state.CanDeliver() {
		s.mu.Unlock()
		return true
	}
	items, force := s.pending, s.pendingForce
	s.mu.Unlock()
	return s.deliver(items, force)
}

func (s *Session[T]) push(items []T) error {
	b := backoff.WithContext(s.opts.newBackOff(), s.ctx)
	return backoff.Retry(func() error {
		err := s.attempt(items)
		if errors.Is(err, ErrConsumerGone) || errors.Is(err, errHeld) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// attempt delivers once if the state still allows it.
func (s *Session[T]) attempt(items []T) error {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	open := s.state.CanDeliver()
	s.mu.Unlock()
	if !open {
		return errHeld
	}
	return s.consumer.Deliver(s.ctx, items)
}

func (s *Session[T]) refreshLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.refreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.RequestUpdate(s.ctx); err != nil && s.ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("periodic update failed")
			}
		}
	}
}
