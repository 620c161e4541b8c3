package state

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

type Neighbour struct {
	Id       NodeId
	Link     uuid.UUID
	LastSeen time.Time
}

// NeighbourTable tracks directly connected nodes. Liveness is purely
// HELLO-driven: every upsert refreshes the entry's TTL and an entry that is
// not refreshed within the timeout is evicted, firing the OnEvict hook.
type NeighbourTable struct {
	cache *ttlcache.Cache[NodeId, Neighbour]
}

func NewNeighbourTable(timeout time.Duration) *NeighbourTable {
	return &NeighbourTable{
		cache: ttlcache.New[NodeId, Neighbour](
			ttlcache.WithTTL[NodeId, Neighbour](timeout),
			ttlcache.WithDisableTouchOnHit[NodeId, Neighbour](),
		),
	}
}

func (t *NeighbourTable) Start() {
	go t.cache.Start()
}

func (t *NeighbourTable) Stop() {
	t.cache.Stop()
}

// OnEvict registers fun to run when an entry expires. Must be called before
// Start. The entry is already gone from the table when fun runs.
func (t *NeighbourTable) OnEvict(fun func(n Neighbour)) {
	t.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[NodeId, Neighbour]) {
		if reason == ttlcache.EvictionReasonExpired {
			fun(item.Value())
		}
	})
}

// Upsert refreshes (or creates) the entry for id, rebinding it to link.
// Reports whether the neighbour is new.
func (t *NeighbourTable) Upsert(id NodeId, link uuid.UUID) bool {
	isNew := !t.cache.Has(id)
	t.cache.Set(id, Neighbour{Id: id, Link: link, LastSeen: time.Now()}, ttlcache.DefaultTTL)
	return isNew
}

func (t *NeighbourTable) Get(id NodeId) (Neighbour, bool) {
	item := t.cache.Get(id)
	if item == nil {
		return Neighbour{}, false
	}
	return item.Value(), true
}

func (t *NeighbourTable) List() []Neighbour {
	items := t.cache.Items()
	res := make([]Neighbour, 0, len(items))
	for _, item := range items {
		res = append(res, item.Value())
	}
	return res
}
