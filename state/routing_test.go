package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteTableSeedsSelf(t *testing.T) {
	rt := NewRouteTable("a")
	e, ok := rt.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, uint32(0), e.Cost)
	assert.Equal(t, Local, e.NextHop)
}

func TestRouteTableSnapshotIsolation(t *testing.T) {
	rt := NewRouteTable("a")
	rt.Update(func(entries map[NodeId]RouteEntry) bool {
		entries["b"] = RouteEntry{Dest: "b", Cost: 1, NextHop: "b"}
		return true
	})

	snap := rt.Snapshot()
	snap["b"] = RouteEntry{Dest: "b", Cost: 99, NextHop: "x"}
	delete(snap, "a")

	e, ok := rt.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, uint32(1), e.Cost)
	_, ok = rt.Lookup("a")
	assert.True(t, ok)
}

func TestRouteTableSelfSurvivesUpdate(t *testing.T) {
	rt := NewRouteTable("a")
	rt.Update(func(entries map[NodeId]RouteEntry) bool {
		delete(entries, "a")
		return true
	})
	e, ok := rt.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, uint32(0), e.Cost)
}
