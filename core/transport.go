package core

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

type sendSession struct {
	nextSeq     uint16
	established bool
}

type pendingSend struct {
	dst   state.NodeId
	seq   uint16
	acked chan struct{}
}

// Transport is the stop-and-wait reliable layer. One send is in flight at a
// time; each message is retransmitted on ack timeout up to MaxSendAttempts
// before the send fails. The first message of a session is a SYN carrying a
// fresh random sequence number, later messages continue from it.
type Transport struct {
	s *state.State

	// serializes Send callers, stop-and-wait allows one in-flight frame
	sendLock sync.Mutex

	mu       sync.Mutex
	pending  *pendingSend
	sessions map[state.NodeId]*sendSession
	expected map[state.NodeId]uint16
	deliver  func(src state.NodeId, payload []byte)

	corruptNext atomic.Bool
	dropNext    atomic.Bool
}

func (t *Transport) Init(s *state.State) error {
	t.s = s
	t.sessions = make(map[state.NodeId]*sendSession)
	t.expected = make(map[state.NodeId]uint16)
	return nil
}

func (t *Transport) Cleanup(s *state.State) error {
	return nil
}

// OnDeliver installs the application payload callback. Without one,
// deliveries are only logged and emitted as events.
func (t *Transport) OnDeliver(fun func(src state.NodeId, payload []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deliver = fun
}

// SetCorrupt arms one-shot checksum corruption of the next emitted frame.
func (t *Transport) SetCorrupt(on bool) {
	t.corruptNext.Store(on)
}

// SetLoss arms one-shot loss of the next emitted frame.
func (t *Transport) SetLoss(on bool) {
	t.dropNext.Store(on)
}

// Send delivers msg to dst reliably. Payloads the codec cannot carry are
// rejected up front (ErrInvalidPayload). Otherwise it blocks until the
// destination acknowledges, every attempt times out (ErrDeliveryFailed),
// there is no route (ErrNoRoute), or the node stops.
func (t *Transport) Send(dst state.NodeId, msg []byte) error {
	if err := wire.CheckBody(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	t.sendLock.Lock()
	defer t.sendLock.Unlock()

	t.mu.Lock()
	sess := t.sessions[dst]
	var seq uint16
	typ := wire.Syn
	if sess != nil && sess.established {
		seq = sess.nextSeq
		typ = wire.Data
	} else {
		seq = uint16(rand.Uint32())
	}
	pending := &pendingSend{dst: dst, seq: seq, acked: make(chan struct{})}
	t.pending = pending
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.pending = nil
		t.mu.Unlock()
	}()

	f := &wire.Frame{
		Src:  t.s.SelfId(),
		Dst:  dst,
		Seq:  seq,
		Type: typ,
		TTL:  t.s.Timing.MaxTTL,
		Body: msg,
	}
	f.Seal()

	fw := Get[*Forwarder](t.s)
	for attempt := 1; attempt <= t.s.Timing.MaxSendAttempts; attempt++ {
		if attempt > 1 {
			t.s.Log.Info("retransmitting", "dst", dst, "seq", seq, "attempt", attempt)
			emitFrame(t.s, EventRetransmit, f, fmt.Sprintf("attempt %d", attempt))
		}

		out := *f
		if t.corruptNext.CompareAndSwap(true, false) {
			// invalidate exactly the checksum, everything else is intact
			out.Checksum ^= 0x5a5a5a5a
			t.s.Log.Warn("simulating corruption", "dst", dst, "seq", seq)
		}
		if t.dropNext.CompareAndSwap(true, false) {
			t.s.Log.Warn("simulating loss", "dst", dst, "seq", seq)
		} else if err := fw.SendLocal(&out); err != nil {
			return err
		}

		select {
		case <-pending.acked:
			t.mu.Lock()
			t.sessions[dst] = &sendSession{nextSeq: seq + 1, established: true}
			t.mu.Unlock()
			return nil
		case <-time.After(t.s.Timing.AckTimeout):
			t.s.Log.Warn("ack timeout", "dst", dst, "seq", seq, "attempt", attempt)
		case <-t.s.Context.Done():
			return t.s.Context.Err()
		}
	}

	// the session may be half-open on the far side; restart it next time
	t.mu.Lock()
	delete(t.sessions, dst)
	t.mu.Unlock()
	return fmt.Errorf("%w: %s seq %d after %d attempts", ErrDeliveryFailed, dst, seq, t.s.Timing.MaxSendAttempts)
}

// HandleData processes an inbound SYN or DATA addressed to this node.
func (t *Transport) HandleData(f *wire.Frame) {
	if f.Corrupt {
		t.s.Log.Warn("dropping corrupt frame", "src", f.Src, "seq", f.Seq, "type", f.Type)
		emitFrame(t.s, EventFrameDropped, f, "checksum mismatch")
		return
	}

	t.mu.Lock()
	expected, known := t.expected[f.Src]
	var accept, ack bool
	switch {
	case !known || f.Seq == expected:
		accept, ack = true, true
	case state.SeqnoLt(f.Seq, expected):
		// duplicate of something already delivered, the ack must
		// have been lost
		ack = true
	case f.Type == wire.Syn:
		// the sender restarted its session, resynchronize
		accept, ack = true, true
	}
	if accept {
		t.expected[f.Src] = f.Seq + 1
	}
	deliver := t.deliver
	t.mu.Unlock()

	if !ack {
		t.s.Log.Debug("out of order frame, dropping", "src", f.Src, "seq", f.Seq, "expected", expected)
		emitFrame(t.s, EventFrameDropped, f, "out of order")
		return
	}

	if accept {
		t.s.Log.Info("message delivered", "src", f.Src, "seq", f.Seq, "len", len(f.Body))
		emitFrame(t.s, EventDelivered, f, "")
		if deliver != nil {
			deliver(f.Src, f.Body)
		}
	} else {
		t.s.Log.Debug("duplicate frame, re-acking", "src", f.Src, "seq", f.Seq)
	}

	ackType := wire.Ack
	if f.Type == wire.Syn {
		ackType = wire.SynAck
	}
	reply := &wire.Frame{
		Src:  t.s.SelfId(),
		Dst:  f.Src,
		Seq:  f.Seq,
		Type: ackType,
		TTL:  t.s.Timing.MaxTTL,
	}
	if err := Get[*Forwarder](t.s).SendLocal(reply.Seal()); err != nil {
		t.s.Log.Debug("ack send failed", "dst", f.Src, "err", err)
	}
}

// HandleAck matches an inbound SYN_ACK or ACK against the in-flight send.
func (t *Transport) HandleAck(f *wire.Frame) {
	if f.Corrupt {
		t.s.Log.Debug("dropping corrupt ack", "src", f.Src, "seq", f.Seq)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pending
	if p == nil || p.dst != f.Src || p.seq != f.Seq {
		t.s.Log.Debug("unexpected ack, discarding", "src", f.Src, "seq", f.Seq)
		return
	}
	t.pending = nil
	close(p.acked)
}
