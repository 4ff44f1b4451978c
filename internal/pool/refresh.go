package pool

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/eventbus"
	"github.com/flitsinc/glanced/internal/schema"
)

// RefreshBuffer lets a source refresh slightly early so periodic session
// requests do not miss a window by a few milliseconds.
const RefreshBuffer = 5 * time.Second

const maxConfigLookups = 8

// RequestUpdate asks the given sources, plus every source that wants refreshes
// while nothing is visible, to republish. Sources are skipped when their
// refresh period is zero or they were refreshed within period minus
// RefreshBuffer. It returns the ids that were signalled.
func (p *Pool) RequestUpdate(ctx context.Context, sourceIDs []string) ([]string, error) {
	candidates := p.refreshCandidates(sourceIDs)
	if len(candidates) == 0 {
		return nil, nil
	}

	configs := make([]content.SourceConfig, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConfigLookups)
	for i, id := range candidates {
		i, id := i, id
		g.Go(func() error {
			cfg, err := p.EffectiveConfig(gctx, id)
			if err != nil {
				return fmt.Errorf("resolve config for %s: %w", id, err)
			}
			configs[i] = cfg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := p.nowFn()
	var due []string
	p.mu.Lock()
	for i, id := range candidates {
		e, ok := p.sources[id]
		if !ok {
			continue
		}
		period := configs[i].RefreshPeriod.Std()
		if period <= 0 {
			continue
		}
		if !e.lastRefresh.IsZero() && now.Sub(e.lastRefresh) < period-RefreshBuffer {
			continue
		}
		e.lastRefresh = now
		due = append(due, id)
	}
	p.mu.Unlock()

	for _, id := range due {
		if err := p.signal(ctx, schema.StreamRefresh, id, nil); err != nil {
			return due, err
		}
	}
	if len(due) > 0 {
		p.log.Debug().Strs("sources", due).Msg("refresh requested")
	}
	return due, nil
}

// refreshCandidates returns the requested ids that are registered, followed by
// the RefreshIfNotVisible sources, without duplicates.
func (p *Pool) refreshCandidates(sourceIDs []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		if _, ok := p.sources[id]; !ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range sourceIDs {
		add(id)
	}
	for _, e := range p.sortedLocked() {
		if e.src.Config.RefreshIfNotVisible {
			add(e.src.ID)
		}
	}
	return out
}

// NotifyClick tells the provider owning uid that the item, or one of the
// actions shown on it, was tapped.
func (p *Pool) NotifyClick(ctx context.Context, uid, actionUID string) error {
	meta := map[string]any{}
	sourceID, id, ok := content.SplitUID(uid)
	if !ok {
		return fmt.Errorf("%w: malformed item id %q", ErrUnknownSource, uid)
	}
	meta[schema.MetaItemID] = id
	if actionUID != "" {
		actionSource, actionID, ok := content.SplitUID(actionUID)
		if !ok {
			return fmt.Errorf("%w: malformed action id %q", ErrUnknownSource, actionUID)
		}
		// The tap belongs to the action's provider, not the target's.
		sourceID = actionSource
		meta[schema.MetaActionID] = actionID
	}
	return p.signal(ctx, schema.StreamInteraction, sourceID, meta)
}

func (p *Pool) NotifyDismiss(ctx context.Context, uid string) error {
	sourceID, id, ok := content.SplitUID(uid)
	if !ok {
		return fmt.Errorf("%w: malformed item id %q", ErrUnknownSource, uid)
	}
	return p.signal(ctx, schema.StreamDismiss, sourceID, map[string]any{schema.MetaItemID: id})
}

func (p *Pool) signal(ctx context.Context, stream, sourceID string, meta map[string]any) error {
	if _, ok := p.Source(sourceID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	if p.signals == nil {
		return nil
	}
	if _, err := p.signals.Push(ctx, eventbus.SignalInput{Stream: stream, SourceID: sourceID, Metadata: meta}); err != nil {
		return fmt.Errorf("push %s signal: %w", stream, err)
	}
	return nil
}
