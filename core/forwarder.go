package core

import (
	"fmt"

	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

// Forwarder moves frames between links. Self-addressed frames are handed to
// the owning module; transit frames burn one TTL hop and follow the routing
// table. A frame whose TTL runs out is answered with TTL_EXC, a frame with
// no usable route is dropped without a word.
type Forwarder struct {
	s *state.State
}

func (fw *Forwarder) Init(s *state.State) error {
	fw.s = s
	return nil
}

func (fw *Forwarder) Cleanup(s *state.State) error {
	return nil
}

func (fw *Forwarder) Handle(f *wire.Frame) {
	if f.Dst == fw.s.SelfId() {
		fw.deliverLocal(f)
		return
	}

	if f.TTL <= 1 {
		fw.s.Log.Debug("ttl exhausted", "src", f.Src, "dst", f.Dst, "type", f.Type)
		emitFrame(fw.s, EventFrameDropped, f, "ttl exhausted")
		// the body carries reporter and original destination so the
		// origin can match the report to what it sent
		reply := &wire.Frame{
			Src:  fw.s.SelfId(),
			Dst:  f.Src,
			Seq:  f.Seq,
			Type: wire.TTLExceeded,
			TTL:  fw.s.Timing.MaxTTL,
			Body: fmt.Appendf(nil, "%s|%s", fw.s.SelfId(), f.Dst),
		}
		if err := fw.SendLocal(reply.Seal()); err != nil {
			fw.s.Log.Debug("could not report ttl exceeded", "to", f.Src, "err", err)
		}
		return
	}
	f.TTL--

	e, ok := fw.s.Routes.Lookup(f.Dst)
	if !ok || e.Cost == state.Inf {
		fw.s.Log.Debug("no route for transit frame", "src", f.Src, "dst", f.Dst)
		emitFrame(fw.s, EventFrameDropped, f, "no route")
		return
	}
	n, ok := fw.s.Neighbours.Get(e.NextHop)
	if !ok {
		fw.s.Log.Debug("next hop is not a neighbour", "dst", f.Dst, "nextHop", e.NextHop)
		emitFrame(fw.s, EventFrameDropped, f, "next hop lost")
		return
	}
	if err := Get[*LinkMgr](fw.s).SendOn(n.Link, f); err != nil {
		fw.s.Log.Debug("forward failed", "dst", f.Dst, "err", err)
		return
	}
	emitFrame(fw.s, EventFrameForwarded, f, "")
}

// SendLocal emits a locally originated frame towards its destination. A
// self-addressed frame loops straight back to delivery. Unlike transit
// handling, the caller hears about a missing route.
func (fw *Forwarder) SendLocal(f *wire.Frame) error {
	if f.Dst == fw.s.SelfId() {
		fw.deliverLocal(f)
		return nil
	}
	e, ok := fw.s.Routes.Lookup(f.Dst)
	if !ok || e.Cost == state.Inf {
		return fmt.Errorf("%w: %s", ErrNoRoute, f.Dst)
	}
	n, ok := fw.s.Neighbours.Get(e.NextHop)
	if !ok {
		return fmt.Errorf("%w: next hop %s is not a neighbour", ErrNoRoute, e.NextHop)
	}
	if err := Get[*LinkMgr](fw.s).SendOn(n.Link, f); err != nil {
		return err
	}
	if state.DBG_log_frames {
		fw.s.Log.Debug("send", "type", f.Type, "dst", f.Dst, "seq", f.Seq)
	}
	emitFrame(fw.s, EventFrameSent, f, "")
	return nil
}

func (fw *Forwarder) deliverLocal(f *wire.Frame) {
	switch f.Type {
	case wire.Syn, wire.Data:
		Get[*Transport](fw.s).HandleData(f)
	case wire.SynAck, wire.Ack:
		Get[*Transport](fw.s).HandleAck(f)
	case wire.PingReq:
		Get[*Diag](fw.s).HandlePingReq(f)
	case wire.PingReply:
		Get[*Diag](fw.s).HandlePingReply(f)
	case wire.TTLExceeded:
		Get[*Diag](fw.s).HandleTTLExceeded(f)
	default:
		fw.s.Log.Debug("unroutable frame type for local delivery", "type", f.Type, "src", f.Src)
		emitFrame(fw.s, EventFrameDropped, f, "unhandled type")
	}
}
