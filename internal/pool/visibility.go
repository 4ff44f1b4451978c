package pool

import (
	"context"

	"github.com/flitsinc/glanced/internal/eventbus"
	"github.com/flitsinc/glanced/internal/schema"
)

// SetVisible records whether a session is on screen. When the aggregate
// "any session visible" flips, every source gets a visibility signal.
// It returns true when the recorded value changed.
func (p *Pool) SetVisible(ctx context.Context, sessionID string, visible bool) bool {
	p.visMu.Lock()
	prev, known := p.visible[sessionID]
	if known && prev == visible {
		p.visMu.Unlock()
		return false
	}
	p.visible[sessionID] = visible
	flipped := p.recomputeVisibleLocked()
	p.visMu.Unlock()

	if flipped {
		p.broadcastVisibility(ctx)
	}
	return true
}

// Forget drops a destroyed session from the visibility map.
func (p *Pool) Forget(ctx context.Context, sessionID string) {
	p.visMu.Lock()
	if _, ok := p.visible[sessionID]; !ok {
		p.visMu.Unlock()
		return
	}
	delete(p.visible, sessionID)
	flipped := p.recomputeVisibleLocked()
	p.visMu.Unlock()

	if flipped {
		p.broadcastVisibility(ctx)
	}
}

// AnyVisible reports whether at least one session is currently visible.
func (p *Pool) AnyVisible() bool {
	p.visMu.Lock()
	defer p.visMu.Unlock()
	return p.anyVisible
}

func (p *Pool) recomputeVisibleLocked() bool {
	visible := false
	for _, v := range p.visible {
		if v {
			visible = true
			break
		}
	}
	flipped := visible != p.anyVisible
	p.anyVisible = visible
	return flipped
}

func (p *Pool) broadcastVisibility(ctx context.Context) {
	visible := p.AnyVisible()
	p.log.Debug().Bool("visible", visible).Msg("aggregate visibility changed")
	if p.signals == nil {
		return
	}
	for _, src := range p.Sources() {
		_, err := p.signals.Push(ctx, eventbus.SignalInput{
			Stream:   schema.StreamVisibility,
			SourceID: src.ID,
			Metadata: map[string]any{schema.MetaVisible: visible},
		})
		if err != nil {
			p.log.Warn().Err(err).Str("source", src.ID).Msg("visibility signal failed")
		}
	}
}
