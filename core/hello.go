package core

import (
	"github.com/strandnet/strand/link"
	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

// Hello keeps the neighbour table alive: it broadcasts a HELLO on every link
// each HelloInterval and refreshes neighbours from inbound HELLOs. A
// neighbour that goes quiet for NeighbourTimeout is evicted, which poisons
// every route through it.
type Hello struct {
	s *state.State
}

func (h *Hello) Init(s *state.State) error {
	h.s = s
	s.Neighbours.OnEvict(h.expired)
	s.Neighbours.Start()
	s.RepeatTask(h.broadcast, s.Timing.HelloInterval)
	return nil
}

func (h *Hello) Cleanup(s *state.State) error {
	s.Neighbours.Stop()
	return nil
}

func (h *Hello) broadcast() error {
	f := &wire.Frame{
		Src:  h.s.SelfId(),
		Dst:  state.Broadcast,
		Type: wire.Hello,
		TTL:  1,
	}
	Get[*LinkMgr](h.s).Broadcast(f.Seal())
	return nil
}

func (h *Hello) HandleHello(f *wire.Frame, l link.Link) {
	if f.Corrupt {
		h.s.Log.Debug("dropping corrupt hello", "src", f.Src)
		return
	}
	if f.Src == h.s.SelfId() {
		return
	}
	isNew := h.s.Neighbours.Upsert(f.Src, l.Id())
	if isNew {
		h.s.Log.Info("neighbour up", "neighbour", f.Src, "link", l.Id())
		emit(h.s, NeighbourEvent{Type: EventNeighbourUp, Node: h.s.SelfId(), Neighbour: f.Src})
	}
	Get[*Router](h.s).InstallDirect(f.Src)
}

// expired runs on the neighbour table's eviction goroutine.
func (h *Hello) expired(n state.Neighbour) {
	if h.s.Stopping.Load() {
		return
	}
	h.s.Log.Warn("neighbour timed out", "neighbour", n.Id, "lastSeen", n.LastSeen)
	emit(h.s, NeighbourEvent{Type: EventNeighbourDown, Node: h.s.SelfId(), Neighbour: n.Id})
	Get[*Router](h.s).PoisonNeighbour(n.Id)
}
