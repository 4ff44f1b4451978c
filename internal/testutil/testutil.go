package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/flitsinc/glanced/internal/state"
)

// OpenTestDB opens a migrated sqlite database under t.TempDir().
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glanced.db")
	db, err := state.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db, func() {
		_ = db.Close()
	}
}

// Receive waits for one value on ch or fails the test after timeout.
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed while waiting for value")
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timeout after %s waiting for value", timeout)
	}
	var zero T
	return zero
}

// NoReceive fails the test if ch yields a value within window.
func NoReceive[T any](t *testing.T, ch <-chan T, window time.Duration) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("unexpected value: %+v", v)
		}
	case <-time.After(window):
	}
}
