package core

import (
	"sync/atomic"

	"github.com/dustin/go-broadcast"
	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

type EventType string

const (
	EventFrameSent      EventType = "frame_sent"
	EventFrameReceived  EventType = "frame_received"
	EventFrameForwarded EventType = "frame_forwarded"
	EventFrameDropped   EventType = "frame_dropped"
	EventRetransmit     EventType = "retransmit"
	EventNeighbourUp    EventType = "neighbour_up"
	EventNeighbourDown  EventType = "neighbour_down"
	EventDelivered      EventType = "message_delivered"
)

// FrameEvent is emitted for every frame crossing the node's boundary.
type FrameEvent struct {
	Type   EventType    `json:"type"`
	Node   state.NodeId `json:"node"`
	Src    state.NodeId `json:"src,omitempty"`
	Dst    state.NodeId `json:"dst,omitempty"`
	Frame  string       `json:"frame,omitempty"`
	Seq    uint16       `json:"seq,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

type NeighbourEvent struct {
	Type      EventType    `json:"type"`
	Node      state.NodeId `json:"node"`
	Neighbour state.NodeId `json:"neighbour"`
}

type TableEntry struct {
	Cost    uint32       `json:"cost"`
	NextHop state.NodeId `json:"nextHop"`
}

// TopologySnapshot is emitted on every routing table change.
type TopologySnapshot struct {
	SelfId state.NodeId                `json:"selfId"`
	Table  map[state.NodeId]TableEntry `json:"table"`
}

// Tracer fans protocol events out to any number of subscribers. Emission
// never blocks; a slow subscriber misses events rather than stalling the
// protocol.
type Tracer struct {
	broadcast.Broadcaster
	closed atomic.Bool
}

func (t *Tracer) Init(s *state.State) error {
	t.Broadcaster = broadcast.NewBroadcaster(1024)
	return nil
}

func (t *Tracer) Cleanup(s *state.State) error {
	t.closed.Store(true)
	return t.Broadcaster.Close()
}

func (t *Tracer) Emit(ev any) {
	if t.closed.Load() {
		return
	}
	t.TrySubmit(ev)
}

func emit(s *state.State, ev any) {
	Get[*Tracer](s).Emit(ev)
}

func emitFrame(s *state.State, typ EventType, f *wire.Frame, reason string) {
	emit(s, FrameEvent{
		Type:   typ,
		Node:   s.SelfId(),
		Src:    f.Src,
		Dst:    f.Dst,
		Frame:  f.Type.String(),
		Seq:    f.Seq,
		Reason: reason,
	})
}
