package core

import (
	"github.com/dustin/go-broadcast"
	"github.com/strandnet/strand/link"
	"github.com/strandnet/strand/state"
)

// Node is the command boundary: everything an operator (or a test harness)
// does to a running node goes through here. All methods are safe for
// concurrent use.
type Node struct {
	s *state.State
}

func (n *Node) Id() state.NodeId {
	return n.s.SelfId()
}

// Send delivers msg to dst reliably, blocking until it is acknowledged or
// delivery fails.
func (n *Node) Send(dst state.NodeId, msg []byte) error {
	return Get[*Transport](n.s).Send(dst, msg)
}

// OnDeliver installs the callback invoked for each payload delivered to
// this node.
func (n *Node) OnDeliver(fun func(src state.NodeId, payload []byte)) {
	Get[*Transport](n.s).OnDeliver(fun)
}

// Table snapshots the routing table.
func (n *Node) Table() map[state.NodeId]state.RouteEntry {
	return n.s.Routes.Snapshot()
}

// Neighbours snapshots the neighbour table.
func (n *Node) Neighbours() []state.Neighbour {
	return n.s.Neighbours.List()
}

func (n *Node) Ping(dst state.NodeId, count int) PingReport {
	return Get[*Diag](n.s).Ping(dst, count)
}

func (n *Node) Traceroute(dst state.NodeId, maxHops int) []Hop {
	return Get[*Diag](n.s).Traceroute(dst, maxHops)
}

// SetCorruptSimulation arms one-shot corruption of the next transport send.
func (n *Node) SetCorruptSimulation(on bool) {
	Get[*Transport](n.s).SetCorrupt(on)
}

// SetLossSimulation arms one-shot loss of the next transport send.
func (n *Node) SetLossSimulation(on bool) {
	Get[*Transport](n.s).SetLoss(on)
}

// Events exposes the observability stream. Register a channel to watch
// protocol events; emission never blocks, slow consumers miss events.
func (n *Node) Events() broadcast.Broadcaster {
	return Get[*Tracer](n.s).Broadcaster
}

// AttachLink hands an externally established link to the link manager.
// This is how non-TCP link providers (serial devices, test pipes) join.
func (n *Node) AttachLink(l link.Link) {
	Get[*LinkMgr](n.s).Attach(l, "")
}

// Done closes when the node has been told to stop.
func (n *Node) Done() <-chan struct{} {
	return n.s.Context.Done()
}

// Stop tears the node down: cancels every worker and cleans up modules.
// Safe to call more than once.
func (n *Node) Stop() {
	stop(n.s)
}
