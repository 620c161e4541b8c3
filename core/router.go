package core

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/strandnet/strand/link"
	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

// Router is the distance-vector engine. It broadcasts the full table every
// DvInterval with per-link poison reverse, relaxes routes from neighbour
// adverts, and fires a triggered update whenever the table changes.
type Router struct {
	s *state.State
}

func (r *Router) Init(s *state.State) error {
	r.s = s
	s.RepeatTask(func() error {
		r.BroadcastAdverts()
		return nil
	}, s.Timing.DvInterval)
	return nil
}

func (r *Router) Cleanup(s *state.State) error {
	return nil
}

// InstallDirect ensures a cost-1 route to a neighbour we can hear directly.
func (r *Router) InstallDirect(id state.NodeId) {
	changed := r.s.Routes.Update(func(entries map[state.NodeId]state.RouteEntry) bool {
		e, ok := entries[id]
		if ok && e.Cost <= 1 {
			return false
		}
		entries[id] = state.RouteEntry{Dest: id, Cost: 1, NextHop: id}
		return true
	})
	if changed {
		r.s.Log.Info("direct route installed", "dest", id)
		r.publishTable()
	}
}

// PoisonNeighbour marks every route through id unreachable and advertises
// the poisoned table immediately, before the next DV interval.
func (r *Router) PoisonNeighbour(id state.NodeId) {
	self := r.s.SelfId()
	changed := r.s.Routes.Update(func(entries map[state.NodeId]state.RouteEntry) bool {
		changed := false
		for dest, e := range entries {
			if dest == self || e.NextHop != id || e.Cost == state.Inf {
				continue
			}
			e.Cost = state.Inf
			entries[dest] = e
			changed = true
		}
		return changed
	})
	if changed {
		r.s.Log.Info("poisoned routes via lost neighbour", "neighbour", id)
		r.BroadcastAdverts()
		r.publishTable()
	}
}

// HandleAdvert relaxes the table against one neighbour's advert.
func (r *Router) HandleAdvert(f *wire.Frame, l link.Link) {
	if f.Corrupt {
		r.s.Log.Debug("dropping corrupt advert", "src", f.Src)
		return
	}
	from := f.Src
	if _, ok := r.s.Neighbours.Get(from); !ok {
		r.s.Log.Warn("advert from unknown neighbour, ignoring", "src", from)
		return
	}
	var adv map[state.NodeId]uint32
	if err := json.Unmarshal(f.Body, &adv); err != nil {
		r.s.Log.Warn("bad advert body", "src", from, "err", err)
		return
	}

	self := r.s.SelfId()
	changed := r.s.Routes.Update(func(entries map[state.NodeId]state.RouteEntry) bool {
		changed := false
		for dest, cost := range adv {
			if dest == self {
				continue
			}
			cand := state.AddCost(cost, 1)
			cur, ok := entries[dest]
			switch {
			case !ok:
				if cand != state.Inf {
					entries[dest] = state.RouteEntry{Dest: dest, Cost: cand, NextHop: from}
					changed = true
				}
			case cur.NextHop == from:
				// current path goes through the advertiser, take
				// its word even when the news is worse
				if cur.Cost != cand {
					cur.Cost = cand
					entries[dest] = cur
					changed = true
				}
			case cand < cur.Cost:
				entries[dest] = state.RouteEntry{Dest: dest, Cost: cand, NextHop: from}
				changed = true
			}
		}
		// a destination the advertiser stopped mentioning is
		// unreachable through it
		for dest, cur := range entries {
			if dest == self || cur.NextHop != from || cur.Cost == state.Inf {
				continue
			}
			if _, ok := adv[dest]; !ok {
				cur.Cost = state.Inf
				entries[dest] = cur
				changed = true
			}
		}
		return changed
	})
	if changed {
		r.BroadcastAdverts()
		r.publishTable()
	}
}

// BroadcastAdverts sends the full table on every link, applying poison
// reverse per link: routes whose next hop is that link's neighbour are
// advertised as unreachable.
func (r *Router) BroadcastAdverts() {
	lm := Get[*LinkMgr](r.s)
	snap := r.s.Routes.Snapshot()

	neighByLink := make(map[uuid.UUID]state.NodeId)
	for _, n := range r.s.Neighbours.List() {
		neighByLink[n.Link] = n.Id
	}

	for _, l := range lm.Links() {
		nid := neighByLink[l.Id()]
		adv := make(map[state.NodeId]uint32, len(snap))
		for dest, e := range snap {
			cost := e.Cost
			if nid != "" && e.NextHop == nid {
				cost = state.Inf
			}
			adv[dest] = cost
		}
		body, err := json.Marshal(adv)
		if err != nil {
			r.s.Log.Error("failed to encode advert", "err", err)
			return
		}
		dst := nid
		if dst == "" {
			dst = state.Broadcast
		}
		f := &wire.Frame{
			Src:  r.s.SelfId(),
			Dst:  dst,
			Type: wire.DV,
			TTL:  1,
			Body: body,
		}
		if err := l.Send(f.Seal()); err != nil {
			r.s.Log.Debug("advert send failed", "link", l.Id(), "err", err)
		}
	}
}

func (r *Router) publishTable() {
	snap := r.s.Routes.Snapshot()
	table := make(map[state.NodeId]TableEntry, len(snap))
	for dest, e := range snap {
		table[dest] = TableEntry{Cost: e.Cost, NextHop: e.NextHop}
	}
	emit(r.s, TopologySnapshot{SelfId: r.s.SelfId(), Table: table})
	if state.DBG_log_route_table {
		r.s.Log.Debug("route table changed", "table", table)
	}
}
