package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/pool"
	"github.com/flitsinc/glanced/internal/session"
	"github.com/flitsinc/glanced/internal/settings"
)

const wait = 2 * time.Second

// recordingPool wraps a real pool and records provider demand.
type recordingPool struct {
	*pool.Pool

	mu         sync.Mutex
	updates    [][]string
	clicks     [][2]string
	dismissals []string
	visibility []visibilityCall
}

type visibilityCall struct {
	SessionID string
	Visible   bool
}

func (r *recordingPool) SetVisible(ctx context.Context, sessionID string, visible bool) bool {
	r.mu.Lock()
	r.visibility = append(r.visibility, visibilityCall{SessionID: sessionID, Visible: visible})
	r.mu.Unlock()
	return r.Pool.SetVisible(ctx, sessionID, visible)
}

func (r *recordingPool) visibilityCalls() []visibilityCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]visibilityCall(nil), r.visibility...)
}

func (r *recordingPool) RequestUpdate(_ context.Context, ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, append([]string(nil), ids...))
	return ids, nil
}

func (r *recordingPool) NotifyClick(_ context.Context, uid, actionUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, [2]string{uid, actionUID})
	return nil
}

func (r *recordingPool) NotifyDismiss(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissals = append(r.dismissals, uid)
	return nil
}

func (r *recordingPool) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func register(t *testing.T, p *pool.Pool, id string, kind content.Kind, priority int) {
	t.Helper()
	_, err := p.Register(context.Background(), pool.Source{ID: id, Kind: kind, Priority: priority})
	require.NoError(t, err)
}

func target(id string) content.Item {
	return content.Item{
		ID:         id,
		Visibility: content.Visibility{ShowOnHome: true, ShowOnLock: true},
		Payload:    content.Payload{Title: id},
	}
}

func weather(id string) content.Item {
	it := target(id)
	it.Feature = content.FeatureWeather
	it.Payload.Date = "2026-10-16"
	return it
}

func action(id string) content.Item {
	return content.Item{
		ID:         id,
		Visibility: content.Visibility{ShowOnHome: true, ShowOnLock: true},
		Payload:    content.Payload{Subtitle: id},
	}
}

func pageIDs(pages []content.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.ID())
	}
	return out
}

func clientConfig(surface content.Surface) session.Config {
	return session.Config{Surface: surface, Kind: session.KindClient, Settings: settings.Defaults()}
}

func newPageSession(t *testing.T, cfg session.Config, consumer session.Consumer[content.Page], deps session.Deps, opts ...session.Option) *session.Session[content.Page] {
	t.Helper()
	strategy, err := session.NewPageStrategy(cfg.Kind)
	require.NoError(t, err)
	opts = append([]session.Option{session.WithDebounce(5 * time.Millisecond), session.WithRefreshPeriod(0)}, opts...)
	s, err := session.New[content.Page](cfg, strategy, consumer, deps, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}
