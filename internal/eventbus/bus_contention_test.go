package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flitsinc/glanced/internal/schema"
	"github.com/flitsinc/glanced/internal/testutil"
)

func TestBusPushWaitsOutWriteContention(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	bus := NewBus(db)
	ctx := context.Background()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.Exec(`
		INSERT INTO signals (id, stream, source_id, subject, body, metadata, created_at, read_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ulid.Make().String(), schema.StreamRefresh, "weather", "hold", "hold", "{}", createdAt, "[]")
	if err != nil {
		_ = tx.Rollback()
		t.Fatalf("seed signal: %v", err)
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = tx.Commit()
	}()

	if _, err := bus.Push(ctx, SignalInput{Stream: schema.StreamRefresh, SourceID: "weather", Body: "contention"}); err != nil {
		t.Fatalf("push under contention: %v", err)
	}

	signals, err := bus.List(ctx, schema.StreamRefresh, ListOptions{SourceID: "weather"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected both signals stored, got %d", len(signals))
	}
}
