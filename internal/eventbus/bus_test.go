package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flitsinc/glanced/internal/schema"
	"github.com/flitsinc/glanced/internal/testutil"
)

func TestBusPushListAck(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	bus := NewBus(db)
	ctx := context.Background()

	first, err := bus.Push(ctx, SignalInput{
		Stream:   schema.StreamInteraction,
		SourceID: "weather",
		Metadata: map[string]any{schema.MetaItemID: "today"},
	})
	if err != nil {
		t.Fatalf("push first: %v", err)
	}
	if first.Body != schema.StreamInteraction {
		t.Fatalf("expected body to default to stream, got %q", first.Body)
	}
	if _, err := bus.Push(ctx, SignalInput{Stream: schema.StreamInteraction, SourceID: "weather", Body: "second"}); err != nil {
		t.Fatalf("push second: %v", err)
	}
	if _, err := bus.Push(ctx, SignalInput{Stream: schema.StreamInteraction, SourceID: "calendar", Body: "other"}); err != nil {
		t.Fatalf("push other source: %v", err)
	}

	items, err := bus.List(ctx, schema.StreamInteraction, ListOptions{SourceID: "weather"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(items))
	}
	if items[0].ID != first.ID {
		t.Fatalf("expected fifo order for interactions")
	}
	if schema.GetMetaString(items[0].Metadata, schema.MetaItemID) != "today" {
		t.Fatalf("expected metadata round trip, got %+v", items[0].Metadata)
	}

	if err := bus.Ack(ctx, schema.StreamInteraction, []string{first.ID}, "weather"); err != nil {
		t.Fatalf("ack: %v", err)
	}
	unread, err := bus.List(ctx, schema.StreamInteraction, ListOptions{SourceID: "weather", Reader: "weather", Unread: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 || unread[0].Body != "second" {
		t.Fatalf("expected only the second signal unread, got %+v", unread)
	}
}

func TestBusRejectsUnknownStream(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	bus := NewBus(db)
	_, err := bus.Push(context.Background(), SignalInput{Stream: "task_input", SourceID: "x"})
	if !errors.Is(err, ErrUnknownStream) {
		t.Fatalf("expected ErrUnknownStream, got %v", err)
	}
	if _, err := bus.Push(context.Background(), SignalInput{Stream: schema.StreamRefresh}); err == nil {
		t.Fatalf("expected error for missing source id")
	}
}

func TestBusSubscribeFiltersBySource(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	bus := NewBus(db)
	ctx := context.Background()

	subCtx, cancel := context.WithCancel(ctx)
	sub := bus.Subscribe(subCtx, Filter{Streams: []string{schema.StreamRefresh}, SourceID: "weather"})

	if _, err := bus.Push(ctx, SignalInput{Stream: schema.StreamRefresh, SourceID: "calendar"}); err != nil {
		t.Fatalf("push calendar: %v", err)
	}
	if _, err := bus.Push(ctx, SignalInput{Stream: schema.StreamDismiss, SourceID: "weather"}); err != nil {
		t.Fatalf("push dismiss: %v", err)
	}
	if _, err := bus.Push(ctx, SignalInput{Stream: schema.StreamRefresh, SourceID: "weather", Body: "ping"}); err != nil {
		t.Fatalf("push weather: %v", err)
	}

	sig := testutil.Receive(t, sub, 2*time.Second)
	if sig.Body != "ping" || sig.SourceID != "weather" {
		t.Fatalf("unexpected signal: %+v", sig)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := <-sub; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestBusDerivesSubjectAndVisibilityBody(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	bus := NewBus(db)
	ctx := context.Background()

	sig, err := bus.Push(ctx, SignalInput{
		Stream:   schema.StreamDismiss,
		SourceID: "weather",
		Metadata: map[string]any{schema.MetaItemID: "today"},
	})
	if err != nil {
		t.Fatalf("push dismiss: %v", err)
	}
	if sig.Subject != "today" {
		t.Fatalf("expected subject from item id, got %q", sig.Subject)
	}

	shown, err := bus.Push(ctx, SignalInput{
		Stream:   schema.StreamVisibility,
		SourceID: "weather",
		Metadata: map[string]any{schema.MetaVisible: true},
	})
	if err != nil {
		t.Fatalf("push visibility: %v", err)
	}
	hidden, err := bus.Push(ctx, SignalInput{Stream: schema.StreamVisibility, SourceID: "weather"})
	if err != nil {
		t.Fatalf("push visibility: %v", err)
	}
	if shown.Body != "visible" || hidden.Body != "hidden" {
		t.Fatalf("unexpected visibility bodies %q / %q", shown.Body, hidden.Body)
	}
}

func TestBusUnreadLimitSkipsAckedSignals(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	bus := NewBus(db)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		sig, err := bus.Push(ctx, SignalInput{Stream: schema.StreamInteraction, SourceID: "weather"})
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		ids = append(ids, sig.ID)
	}
	if err := bus.Ack(ctx, schema.StreamInteraction, ids[:2], "widget"); err != nil {
		t.Fatalf("ack: %v", err)
	}

	unread, err := bus.List(ctx, schema.StreamInteraction, ListOptions{Reader: "widget", Unread: true, Limit: 2})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 2 || unread[0].ID != ids[2] || unread[1].ID != ids[3] {
		t.Fatalf("expected the two newest signals unread, got %+v", unread)
	}

	other, err := bus.List(ctx, schema.StreamInteraction, ListOptions{Reader: "launcher", Unread: true, Limit: 2})
	if err != nil {
		t.Fatalf("list other reader: %v", err)
	}
	if len(other) != 2 || other[0].ID != ids[0] {
		t.Fatalf("expected another reader to start from the oldest, got %+v", other)
	}
}
