package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryUpsertCreatesAndUpdates(t *testing.T) {
	r := newRegistry()

	u := r.upsert("u1", "Alice", "c1")
	require.Equal(t, "Alice", u.DisplayName)
	require.Equal(t, "c1", u.ConnectionID)

	// Reconnect under a new handle: same identity, last writer wins.
	u = r.upsert("u1", "Alicia", "c2")
	require.Equal(t, "Alicia", u.DisplayName)
	require.Equal(t, "c2", u.ConnectionID)

	_, ok := r.byConnection("c1")
	require.False(t, ok, "stale connection handle must be dropped")

	got, ok := r.byConnection("c2")
	require.True(t, ok)
	require.Equal(t, "u1", got.ID)
}

func TestRegistryUpsertKeepsNameWhenOmitted(t *testing.T) {
	r := newRegistry()

	r.upsert("u1", "Alice", "c1")
	u := r.upsert("u1", "", "c2")
	require.Equal(t, "Alice", u.DisplayName)
}

func TestRegistryDisconnect(t *testing.T) {
	r := newRegistry()
	r.upsert("u1", "Alice", "c1")

	u, ok := r.disconnect("c1")
	require.True(t, ok)
	require.Equal(t, "u1", u.ID)

	// The user survives the disconnect; only the handle goes.
	got, ok := r.get("u1")
	require.True(t, ok)
	require.Empty(t, got.ConnectionID)

	_, ok = r.disconnect("c1")
	require.False(t, ok, "second disconnect must be a no-op")
}

func TestRegistryDropIfIdle(t *testing.T) {
	r := newRegistry()
	r.upsert("u1", "Alice", "c1")

	// Still connected: not dropped.
	r.dropIfIdle("u1")
	_, ok := r.get("u1")
	require.True(t, ok)

	r.disconnect("c1")
	r.dropIfIdle("u1")
	_, ok = r.get("u1")
	require.False(t, ok)
}

func TestRegistryDropIfIdleSparesReconnected(t *testing.T) {
	r := newRegistry()
	r.upsert("u1", "Alice", "c1")
	r.disconnect("c1")

	// Reconnected before the cleanup ran.
	r.upsert("u1", "Alice", "c2")
	r.dropIfIdle("u1")

	_, ok := r.get("u1")
	require.True(t, ok)
}
