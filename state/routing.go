package state

import (
	"maps"
	"sync"
)

type NodeId string

type RouteEntry struct {
	Dest    NodeId
	Cost    uint32
	NextHop NodeId
}

// RouteTable is the distance-vector routing table. Readers take consistent
// snapshots; compound read-modify-write happens inside Update so the
// Bellman-Ford relaxation is atomic with respect to forwarding lookups.
type RouteTable struct {
	mu      sync.Mutex
	self    NodeId
	entries map[NodeId]RouteEntry
}

func NewRouteTable(self NodeId) *RouteTable {
	return &RouteTable{
		self: self,
		entries: map[NodeId]RouteEntry{
			self: {Dest: self, Cost: 0, NextHop: Local},
		},
	}
}

func (t *RouteTable) Self() NodeId {
	return t.self
}

func (t *RouteTable) Lookup(dest NodeId) (RouteEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[dest]
	return e, ok
}

// Snapshot returns a copy that is safe to read and mutate without the lock.
func (t *RouteTable) Snapshot() map[NodeId]RouteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.entries)
}

// Update runs fun with exclusive access to the table. fun reports whether it
// changed anything. The self entry survives whatever fun does to the map.
func (t *RouteTable) Update(fun func(entries map[NodeId]RouteEntry) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := fun(t.entries)
	t.entries[t.self] = RouteEntry{Dest: t.self, Cost: 0, NextHop: Local}
	return changed
}
