package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flitsinc/glanced/internal/content"
	"github.com/flitsinc/glanced/internal/eventbus"
	"github.com/flitsinc/glanced/internal/schema"
	"github.com/flitsinc/glanced/internal/state"
	"github.com/flitsinc/glanced/internal/testutil"
)

type fakeSignals struct {
	mu  sync.Mutex
	got []eventbus.SignalInput
}

func (f *fakeSignals) Push(_ context.Context, in eventbus.SignalInput) (eventbus.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, in)
	return eventbus.Signal{Stream: in.Stream, SourceID: in.SourceID}, nil
}

func (f *fakeSignals) streams(stream string) []eventbus.SignalInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []eventbus.SignalInput
	for _, s := range f.got {
		if s.Stream == stream {
			out = append(out, s)
		}
	}
	return out
}

func ids(items []content.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.UID())
	}
	return out
}

func TestSnapshotOrdersByPriorityThenRegistration(t *testing.T) {
	ctx := context.Background()
	p := New()

	for _, src := range []Source{
		{ID: "calendar", Kind: content.KindTarget, Priority: 1},
		{ID: "weather", Kind: content.KindTarget},
		{ID: "music", Kind: content.KindTarget, Priority: 1},
		{ID: "battery", Kind: content.KindAction},
	} {
		_, err := p.Register(ctx, src)
		require.NoError(t, err)
	}
	require.NoError(t, p.Publish("calendar", []content.Item{{ID: "standup"}}))
	require.NoError(t, p.Publish("music", []content.Item{{ID: "now-playing"}}))
	require.NoError(t, p.Publish("weather", []content.Item{{ID: "today", Feature: content.FeatureWeather}}))
	require.NoError(t, p.Publish("battery", []content.Item{{ID: "phone"}}))

	snap := p.Snapshot()
	assert.Equal(t, []string{"weather:today", "calendar:standup", "music:now-playing"}, ids(snap.Targets))
	assert.Equal(t, []string{"battery:phone"}, ids(snap.Actions))
	assert.Equal(t, content.KindAction, snap.Actions[0].Kind)
	assert.Contains(t, snap.Configs, "weather")
}

func TestPublishValidation(t *testing.T) {
	ctx := context.Background()
	p := New()
	_, err := p.Register(ctx, Source{ID: "battery", Kind: content.KindAction})
	require.NoError(t, err)

	err = p.Publish("missing", nil)
	assert.True(t, errors.Is(err, ErrUnknownSource))

	err = p.Publish("battery", []content.Item{{ID: "x", Kind: content.KindTarget}})
	assert.True(t, errors.Is(err, ErrKindMismatch))

	err = p.Publish("battery", []content.Item{{ID: "x", SourceID: "weather"}})
	assert.Error(t, err)

	_, err = p.Register(ctx, Source{ID: "Bad Id", Kind: content.KindTarget})
	assert.Error(t, err)
	_, err = p.Register(ctx, Source{ID: "odd", Kind: "complication"})
	assert.Error(t, err)
}

func TestPublishDoesNotAliasCallerItems(t *testing.T) {
	p := New()
	_, err := p.Register(context.Background(), Source{ID: "notes", Kind: content.KindTarget})
	require.NoError(t, err)

	items := []content.Item{{ID: "a", Payload: content.Payload{Extras: map[string]string{"k": "v"}}}}
	require.NoError(t, p.Publish("notes", items))
	items[0].Payload.Extras["k"] = "changed"

	assert.Equal(t, "v", p.Snapshot().Targets[0].Payload.Extras["k"])
}

func TestSubscribeDeliversLatestAndCloses(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancel(context.Background())

	sub := p.Subscribe(ctx)
	first := testutil.Receive(t, sub, time.Second)
	assert.Empty(t, first.Targets)

	_, err := p.Register(ctx, Source{ID: "notes", Kind: content.KindTarget})
	require.NoError(t, err)
	require.NoError(t, p.Publish("notes", []content.Item{{ID: "a"}}))
	require.NoError(t, p.Publish("notes", []content.Item{{ID: "a"}, {ID: "b"}}))

	got := testutil.Receive(t, sub, time.Second)
	assert.Equal(t, []string{"notes:a", "notes:b"}, ids(got.Targets))
	assert.Greater(t, got.Version, first.Version)
	testutil.NoReceive(t, sub, 30*time.Millisecond)

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for p.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRemoveDropsItems(t *testing.T) {
	ctx := context.Background()
	p := New()
	_, err := p.Register(ctx, Source{ID: "notes", Kind: content.KindTarget})
	require.NoError(t, err)
	require.NoError(t, p.Publish("notes", []content.Item{{ID: "a"}}))

	require.NoError(t, p.Remove(ctx, "notes"))
	assert.Empty(t, p.Snapshot().Targets)
	assert.True(t, errors.Is(p.Remove(ctx, "notes"), ErrUnknownSource))
}

func TestVisibilityAggregates(t *testing.T) {
	ctx := context.Background()
	sig := &fakeSignals{}
	p := New(WithSignals(sig))
	_, err := p.Register(ctx, Source{ID: "weather", Kind: content.KindTarget})
	require.NoError(t, err)

	assert.True(t, p.SetVisible(ctx, "s1", true))
	assert.False(t, p.SetVisible(ctx, "s1", true))
	assert.True(t, p.SetVisible(ctx, "s2", true))
	assert.True(t, p.AnyVisible())
	require.Len(t, sig.streams(schema.StreamVisibility), 1)

	p.SetVisible(ctx, "s1", false)
	assert.True(t, p.AnyVisible())
	require.Len(t, sig.streams(schema.StreamVisibility), 1)

	p.Forget(ctx, "s2")
	assert.False(t, p.AnyVisible())
	signals := sig.streams(schema.StreamVisibility)
	require.Len(t, signals, 2)
	assert.Equal(t, false, signals[1].Metadata[schema.MetaVisible])
}

func TestRequestUpdateHonoursPeriodAndBuffer(t *testing.T) {
	ctx := context.Background()
	sig := &fakeSignals{}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := New(WithSignals(sig), WithClock(func() time.Time { return now }))

	for _, src := range []Source{
		{ID: "weather", Kind: content.KindTarget, Config: content.SourceConfig{RefreshPeriod: content.Duration(time.Minute)}},
		{ID: "static", Kind: content.KindTarget},
		{ID: "steps", Kind: content.KindAction, Config: content.SourceConfig{RefreshPeriod: content.Duration(time.Minute), RefreshIfNotVisible: true}},
	} {
		_, err := p.Register(ctx, src)
		require.NoError(t, err)
	}

	due, err := p.RequestUpdate(ctx, []string{"weather", "static", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"weather", "steps"}, due)

	now = now.Add(50 * time.Second)
	due, err = p.RequestUpdate(ctx, []string{"weather"})
	require.NoError(t, err)
	assert.Empty(t, due, "refreshed 50s ago, period 60s minus 5s buffer not reached")

	now = now.Add(5 * time.Second)
	due, err = p.RequestUpdate(ctx, []string{"weather"})
	require.NoError(t, err)
	assert.Equal(t, []string{"weather", "steps"}, due)
	assert.Len(t, sig.streams(schema.StreamRefresh), 4)
}

func TestNotifyRoutesToOwningSource(t *testing.T) {
	ctx := context.Background()
	sig := &fakeSignals{}
	p := New(WithSignals(sig))
	_, err := p.Register(ctx, Source{ID: "weather", Kind: content.KindTarget})
	require.NoError(t, err)
	_, err = p.Register(ctx, Source{ID: "battery", Kind: content.KindAction})
	require.NoError(t, err)

	require.NoError(t, p.NotifyClick(ctx, "weather:today", ""))
	require.NoError(t, p.NotifyClick(ctx, "weather:today", "battery:phone"))
	require.NoError(t, p.NotifyDismiss(ctx, "weather:today"))
	assert.True(t, errors.Is(p.NotifyDismiss(ctx, "nobody:x"), ErrUnknownSource))
	assert.Error(t, p.NotifyClick(ctx, "no-colon", ""))

	clicks := sig.streams(schema.StreamInteraction)
	require.Len(t, clicks, 2)
	assert.Equal(t, "weather", clicks[0].SourceID)
	assert.Equal(t, "battery", clicks[1].SourceID)
	assert.Equal(t, "phone", clicks[1].Metadata[schema.MetaActionID])

	dismissals := sig.streams(schema.StreamDismiss)
	require.Len(t, dismissals, 1)
	assert.Equal(t, "today", dismissals[0].Metadata[schema.MetaItemID])
}

func TestLoadRestoresRegistry(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()
	ctx := context.Background()
	store := state.NewStore(db)

	first := New(WithRegistry(store))
	_, err := first.Register(ctx, Source{ID: "weather", Kind: content.KindTarget, Priority: 2,
		Config: content.SourceConfig{ShowWidget: true, RefreshPeriod: content.Duration(15 * time.Minute)}})
	require.NoError(t, err)
	_, err = first.Register(ctx, Source{ID: "battery", Kind: content.KindAction})
	require.NoError(t, err)

	second := New(WithRegistry(store))
	require.NoError(t, second.Load(ctx))
	src, ok := second.Source("weather")
	require.True(t, ok)
	assert.Equal(t, 2, src.Priority)
	assert.True(t, src.Config.ShowWidget)
	assert.Equal(t, 15*time.Minute, src.Config.RefreshPeriod.Std())
	assert.Len(t, second.Sources(), 2)

	require.NoError(t, second.Remove(ctx, "battery"))
	third := New(WithRegistry(store))
	require.NoError(t, third.Load(ctx))
	assert.Len(t, third.Sources(), 1)
}
