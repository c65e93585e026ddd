package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorize/internal/styles"
)

func TestStoreSweepEvictsIdleSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Hour, 0, styles.Preset{ID: "flat"}, nil)
	store.now = func() time.Time { return now }

	stale := mustCreate(t, store)
	busy := mustCreate(t, store)
	busy.inFlight = true

	now = now.Add(30 * time.Minute)
	fresh := mustCreate(t, store)
	_, ok := store.Get(stale.ID())
	require.True(t, ok)

	now = now.Add(90 * time.Minute)
	_, _ = store.Get(fresh.ID())

	assert.Equal(t, 1, store.Sweep())
	_, ok = store.Get(stale.ID())
	assert.False(t, ok)
	_, ok = store.Get(busy.ID())
	assert.True(t, ok, "in-flight sessions survive the sweep")
	_, ok = store.Get(fresh.ID())
	assert.True(t, ok)
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	store := NewStore(time.Minute, 0, styles.Preset{ID: "flat"}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func mustCreate(t *testing.T, store *Store) *State {
	t.Helper()
	st, err := store.Create()
	require.NoError(t, err)
	return st
}

func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(time.Minute, 0, styles.Preset{ID: "ink"}, nil)

	st, created, err := store.GetOrCreate("")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ink", st.snapshot().Style)

	again, created, err := store.GetOrCreate(st.ID())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, st, again)
	assert.Equal(t, 1, store.Len())
}

func TestStoreCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Hour, 2, styles.Preset{ID: "flat"}, nil)
	store.now = func() time.Time { return now }

	older := mustCreate(t, store)
	now = now.Add(time.Minute)
	newer := mustCreate(t, store)
	now = now.Add(time.Minute)
	_, _ = store.Get(older.ID())

	now = now.Add(time.Minute)
	third := mustCreate(t, store)

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get(newer.ID())
	assert.False(t, ok, "least recently used session is evicted")
	_, ok = store.Get(older.ID())
	assert.True(t, ok)
	_, ok = store.Get(third.ID())
	assert.True(t, ok)
}

func TestStoreCapacityKeepsInFlightSessions(t *testing.T) {
	store := NewStore(time.Hour, 2, styles.Preset{ID: "flat"}, nil)

	for i := 0; i < 2; i++ {
		mustCreate(t, store).inFlight = true
	}

	_, err := store.Create()
	assert.ErrorIs(t, err, ErrCapacity)
	_, _, err = store.GetOrCreate("")
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, 2, store.Len())
}
