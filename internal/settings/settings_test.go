package settings_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flitsinc/glanced/internal/settings"
	"github.com/flitsinc/glanced/internal/state"
	"github.com/flitsinc/glanced/internal/testutil"
)

func TestSnapshotWith(t *testing.T) {
	snap := settings.Defaults()

	next, err := snap.With(settings.KeyHideSensitive, "hide_contents")
	require.NoError(t, err)
	assert.Equal(t, settings.HideSensitiveContents, next.HideSensitive)
	assert.Equal(t, settings.HideSensitiveDisabled, snap.HideSensitive, "original snapshot must not change")

	next, err = next.With(settings.KeyNativeCountLimit, "automatic")
	require.NoError(t, err)
	assert.Equal(t, 0, next.NativeCountLimit)
	next, err = next.With(settings.KeyNativeCountLimit, "3")
	require.NoError(t, err)
	assert.Equal(t, 3, next.NativeCountLimit)

	_, err = snap.With("wallpaper", "x")
	assert.True(t, errors.Is(err, settings.ErrUnknownKey))
	_, err = snap.With(settings.KeyOpenModeLock, "sometimes")
	assert.True(t, errors.Is(err, settings.ErrInvalidValue))
	_, err = snap.With(settings.KeyNativeCountLimit, "-1")
	assert.True(t, errors.Is(err, settings.ErrInvalidValue))
}

func TestSnapshotValuesRoundTrip(t *testing.T) {
	snap := settings.Defaults()
	snap.ActionsFirst = true
	snap.NativeCountLimit = 2
	snap.OpenModeHome = settings.OpenModeAlways

	back, err := settings.Defaults().Apply(snap.Values())
	require.NoError(t, err)
	assert.Equal(t, snap, back)
}

func TestStorePersistsAndNotifies(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := settings.NewStore(ctx, state.NewStore(db))
	require.NoError(t, err)

	sub := store.Subscribe(ctx)
	first := testutil.Receive(t, sub, time.Second)
	assert.Equal(t, settings.Defaults(), first)

	require.NoError(t, store.Set(ctx, settings.KeyActionsFirst, "true"))
	require.NoError(t, store.Set(ctx, settings.KeySplitEnabled, "false"))

	// Latest-value channel: only the newest snapshot is pending.
	got := testutil.Receive(t, sub, time.Second)
	assert.True(t, got.ActionsFirst)
	assert.False(t, got.SplitEnabled)
	testutil.NoReceive(t, sub, 50*time.Millisecond)

	err = store.Set(ctx, settings.KeyHideSensitive, "everything")
	require.Error(t, err)
	assert.Equal(t, settings.HideSensitiveDisabled, store.Snapshot().HideSensitive)

	reopened, err := settings.NewStore(ctx, state.NewStore(db))
	require.NoError(t, err)
	assert.True(t, reopened.Snapshot().ActionsFirst)
	assert.False(t, reopened.Snapshot().SplitEnabled)
}

func TestStoreWithoutBackend(t *testing.T) {
	store, err := settings.NewStore(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), settings.KeyExpandedEnabled, "false"))
	assert.False(t, store.Snapshot().ExpandedEnabled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hide_sensitive: hide_target\nnative_target_count: 4\nactions_first: true\n"), 0o644))

	values, err := settings.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		settings.KeyHideSensitive:    "hide_target",
		settings.KeyNativeCountLimit: "4",
		settings.KeyActionsFirst:     "true",
	}, values)

	require.NoError(t, os.WriteFile(path, []byte("hide_sensitive: [a, b]\n"), 0o644))
	_, err = settings.LoadFile(path)
	assert.True(t, errors.Is(err, settings.ErrInvalidValue))
}

func TestStoreWatchAppliesFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actions_first: true\n"), 0o644))

	store, err := settings.NewStore(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx, path) }()

	deadline := time.Now().Add(5 * time.Second)
	for !store.Snapshot().ActionsFirst {
		if time.Now().After(deadline) {
			t.Fatalf("initial file was not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}

	for store.Snapshot().HideSensitive != settings.HideSensitiveTarget {
		if time.Now().After(deadline) {
			t.Fatalf("file change was not applied")
		}
		require.NoError(t, os.WriteFile(path, []byte("actions_first: true\nhide_sensitive: hide_target\n"), 0o644))
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	require.NoError(t, testutil.Receive[error](t, done, 2*time.Second))
}
