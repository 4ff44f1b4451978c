package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/eventbus"
	"github.com/flitsinc/glanced/internal/idgen"
	"github.com/flitsinc/glanced/internal/logging"
	"github.com/flitsinc/glanced/internal/state"
)

var (
	ErrUnknownSource = errors.New("unknown source")
	ErrKindMismatch  = errors.New("item kind does not match source kind")
)

// Source is a registered content provider.
type Source struct {
	ID       string               `json:"id"`
	Kind     content.Kind         `json:"kind"`
	Priority int                  `json:"priority"`
	Config   content.SourceConfig `json:"config"`
}

// Snapshot is a read-only view of every published item. Targets and actions
// are grouped by source, ordered by priority then registration order.
type Snapshot struct {
	Version       uint64                           `json:"version"`
	Targets       []content.Item                   `json:"targets"`
	Actions       []content.Item                   `json:"actions"`
	Configs       map[string]content.SourceConfig  `json:"configs,omitempty"`
	Compatibility map[string]content.Compatibility `json:"compatibility,omitempty"`
}

// Signaler receives demand signals for providers. *eventbus.Bus satisfies it.
type Signaler interface {
	Push(ctx context.Context, input eventbus.SignalInput) (eventbus.Signal, error)
}

// Registry persists source registrations. *state.Store satisfies it.
type Registry interface {
	SaveSource(ctx context.Context, src state.Source) (state.Source, error)
	ListSources(ctx context.Context) ([]state.Source, error)
	DeleteSource(ctx context.Context, id string) error
}

type entry struct {
	src         Source
	order       int
	items       []content.Item
	lastRefresh time.Time
}

type Pool struct {
	signals  Signaler
	registry Registry
	nowFn    func() time.Time
	log      zerolog.Logger

	mu        sync.RWMutex
	sources   map[string]*entry
	nextOrder int
	compat    map[string]content.Compatibility
	snap      Snapshot
	subs      map[uint64]chan Snapshot
	nextSub   uint64

	visMu      sync.Mutex
	visible    map[string]bool
	anyVisible bool
}

type Option func(*Pool)

func WithSignals(s Signaler) Option {
	return func(p *Pool) {
		p.signals = s
	}
}

func WithRegistry(r Registry) Option {
	return func(p *Pool) {
		p.registry = r
	}
}

func WithClock(nowFn func() time.Time) Option {
	return func(p *Pool) {
		if nowFn != nil {
			p.nowFn = nowFn
		}
	}
}

func New(opts ...Option) *Pool {
	p := &Pool{
		nowFn:   func() time.Time { return time.Now().UTC() },
		log:     logging.Component("pool"),
		sources: map[string]*entry{},
		compat:  map[string]content.Compatibility{},
		subs:    map[uint64]chan Snapshot{},
		visible: map[string]bool{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.snap = p.buildLocked()
	return p
}

// Load registers every persisted source. Items are not persisted; providers
// republish after a restart.
func (p *Pool) Load(ctx context.Context) error {
	if p.registry == nil {
		return nil
	}
	records, err := p.registry.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range records {
		src := Source{ID: rec.ID, Kind: content.Kind(rec.Kind), Priority: rec.Priority}
		if len(rec.Config) > 0 {
			if err := json.Unmarshal(rec.Config, &src.Config); err != nil {
				p.log.Warn().Err(err).Str("source", rec.ID).Msg("ignoring malformed source config")
			}
		}
		p.addLocked(src)
	}
	p.publishLocked()
	return nil
}

func (p *Pool) Register(ctx context.Context, src Source) (Source, error) {
	if err := idgen.ValidateSourceID(src.ID); err != nil {
		return Source{}, err
	}
	switch src.Kind {
	case content.KindTarget, content.KindAction:
	default:
		return Source{}, fmt.Errorf("source %s: unknown kind %q", src.ID, src.Kind)
	}
	if p.registry != nil {
		cfg, err := json.Marshal(src.Config)
		if err != nil {
			return Source{}, fmt.Errorf("encode source config: %w", err)
		}
		if _, err := p.registry.SaveSource(ctx, state.Source{ID: src.ID, Kind: string(src.Kind), Priority: src.Priority, Config: cfg}); err != nil {
			return Source{}, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.sources[src.ID]; ok && e.src.Kind != src.Kind {
		e.items = nil
	}
	p.addLocked(src)
	p.publishLocked()
	p.log.Info().Str("source", src.ID).Str("kind", string(src.Kind)).Int("priority", src.Priority).Msg("source registered")
	return src, nil
}

func (p *Pool) addLocked(src Source) {
	if e, ok := p.sources[src.ID]; ok {
		e.src = src
		return
	}
	p.sources[src.ID] = &entry{src: src, order: p.nextOrder}
	p.nextOrder++
}

func (p *Pool) Remove(ctx context.Context, id string) error {
	p.mu.Lock()
	if _, ok := p.sources[id]; !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	delete(p.sources, id)
	p.publishLocked()
	p.mu.Unlock()

	if p.registry != nil {
		if err := p.registry.DeleteSource(ctx, id); err != nil {
			return err
		}
	}
	p.log.Info().Str("source", id).Msg("source removed")
	return nil
}

func (p *Pool) Source(id string) (Source, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.sources[id]
	if !ok {
		return Source{}, false
	}
	return e.src, true
}

func (p *Pool) Sources() []Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Source, 0, len(p.sources))
	for _, e := range p.sortedLocked() {
		out = append(out, e.src)
	}
	return out
}

// Publish replaces everything sourceID currently supplies. Items without a
// kind or source id inherit them from the source.
func (p *Pool) Publish(sourceID string, items []content.Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.sources[sourceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	next := make([]content.Item, 0, len(items))
	for _, it := range items {
		it = it.Clone()
		if it.Kind == "" {
			it.Kind = e.src.Kind
		}
		if it.Kind != e.src.Kind {
			return fmt.Errorf("%w: %s is %s, item %s is %s", ErrKindMismatch, sourceID, e.src.Kind, it.ID, it.Kind)
		}
		if it.SourceID == "" {
			it.SourceID = sourceID
		}
		if it.SourceID != sourceID {
			return fmt.Errorf("item %s claims source %s, published by %s", it.ID, it.SourceID, sourceID)
		}
		next = append(next, it)
	}
	e.items = next
	p.publishLocked()
	return nil
}

// SetCompatibility records which templates the renderer in pkg supports.
// A nil report removes it.
func (p *Pool) SetCompatibility(pkg string, report content.Compatibility) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if report == nil {
		delete(p.compat, pkg)
	} else {
		cp := make(content.Compatibility, len(report))
		for k, v := range report {
			cp[k] = v
		}
		p.compat[pkg] = cp
	}
	p.publishLocked()
}

// EffectiveConfig resolves the configuration a source currently declares.
func (p *Pool) EffectiveConfig(ctx context.Context, sourceID string) (content.SourceConfig, error) {
	if err := ctx.Err(); err != nil {
		return content.SourceConfig{}, err
	}
	src, ok := p.Source(sourceID)
	if !ok {
		return content.SourceConfig{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	return src.Config, nil
}

func (p *Pool) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Subscribe returns a latest-value channel primed with the current snapshot.
// It is closed when ctx ends.
func (p *Pool) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	ch <- p.snap
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (p *Pool) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

func (p *Pool) sortedLocked() []*entry {
	out := make([]*entry, 0, len(p.sources))
	for _, e := range p.sources {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].src.Priority != out[j].src.Priority {
			return out[i].src.Priority < out[j].src.Priority
		}
		return out[i].order < out[j].order
	})
	return out
}

func (p *Pool) buildLocked() Snapshot {
	snap := Snapshot{
		Version:       p.snap.Version + 1,
		Targets:       []content.Item{},
		Actions:       []content.Item{},
		Configs:       make(map[string]content.SourceConfig, len(p.sources)),
		Compatibility: make(map[string]content.Compatibility, len(p.compat)),
	}
	for _, e := range p.sortedLocked() {
		snap.Configs[e.src.ID] = e.src.Config
		if e.src.Kind == content.KindAction {
			snap.Actions = append(snap.Actions, e.items...)
		} else {
			snap.Targets = append(snap.Targets, e.items...)
		}
	}
	for k, v := range p.compat {
		snap.Compatibility[k] = v
	}
	return snap
}

func (p *Pool) publishLocked() {
	p.snap = p.buildLocked()
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p.snap:
		default:
		}
	}
}
