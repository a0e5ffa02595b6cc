package editsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_BeginThenSuccessRemovesEntry(t *testing.T) {
	r := NewRegistry()
	key := Key{Subject: "alice", Item: "hw1"}

	r.Begin(key)
	require.True(t, r.Busy(key))
	require.Equal(t, 1, r.Len())

	settled := r.ResolveSuccess(key)
	require.True(t, settled)
	require.False(t, r.Busy(key))
	require.Equal(t, 0, r.Len())
}

func TestRegistry_OverlappingRequestsSettleOnce(t *testing.T) {
	r := NewRegistry()
	key := Key{Subject: "bob", Item: "quiz2"}

	require.Equal(t, 1, r.Begin(key))
	require.Equal(t, 2, r.Begin(key))

	require.False(t, r.ResolveSuccess(key), "first resolution must not settle")
	require.True(t, r.Busy(key), "still busy while the second request is outstanding")

	require.True(t, r.ResolveSuccess(key), "last resolution settles")
	require.False(t, r.Busy(key))
	require.Equal(t, 0, r.Len())
}

func TestRegistry_InterleavedBeginsAndResolutions(t *testing.T) {
	r := NewRegistry()
	key := Key{Subject: "bob", Item: "quiz2"}

	settledCount := 0
	resolve := func() {
		if r.ResolveSuccess(key) {
			settledCount++
		}
	}

	r.Begin(key)
	r.Begin(key)
	resolve()
	r.Begin(key)
	resolve()
	resolve()

	require.Equal(t, 1, settledCount, "entry is removed exactly once, after the last resolution")
	require.Equal(t, 0, r.InFlight(key))
	require.Equal(t, 0, r.Len())
}

func TestRegistry_FailureKeepsCellBusy(t *testing.T) {
	r := NewRegistry()
	key := Key{Subject: "carol", Item: "essay"}

	r.Begin(key)
	r.ResolveFailure(key)

	require.Equal(t, 1, r.InFlight(key), "failure leaves the counter unchanged")
	require.True(t, r.Failed(key))
	require.True(t, r.Busy(key), "a failed save must not silently disappear")
}

func TestRegistry_BeginAfterFailureResets(t *testing.T) {
	r := NewRegistry()
	key := Key{Subject: "carol", Item: "essay"}

	r.Begin(key)
	r.ResolveFailure(key)

	require.Equal(t, 1, r.Begin(key), "counter resets to 1, not 2")
	require.False(t, r.Failed(key), "failure flag clears on the fresh edit")

	require.True(t, r.ResolveSuccess(key))
	require.False(t, r.Busy(key))
	require.Equal(t, 0, r.Len())
}

func TestRegistry_IndependentCells(t *testing.T) {
	r := NewRegistry()
	failing := Key{Subject: "carol", Item: "essay"}
	healthy := Key{Subject: "alice", Item: "hw1"}

	r.Begin(failing)
	r.Begin(healthy)
	r.ResolveFailure(failing)

	require.True(t, r.ResolveSuccess(healthy), "one cell's failure never leaks into another")
	require.False(t, r.Busy(healthy))
	require.True(t, r.Busy(failing))
}
