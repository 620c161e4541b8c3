package core

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

type PingReport struct {
	Dest     state.NodeId
	Sent     int
	Received int
	Lost     int
	Min      time.Duration
	Avg      time.Duration
	Max      time.Duration
	Rtts     []time.Duration
}

// Hop is one traceroute step. Reached marks the final destination; a hop
// that answered nothing within the timeout has TimedOut set and no id.
type Hop struct {
	TTL      int
	From     state.NodeId
	Rtt      time.Duration
	Reached  bool
	TimedOut bool
}

type probeResult struct {
	from    state.NodeId
	rtt     time.Duration
	reached bool
}

// probeKey identifies an outstanding probe. Keying on the destination as
// well as the seq keeps an unrelated frame's TTL report (whose seq may
// collide) from settling the wrong probe.
type probeKey struct {
	dst state.NodeId
	seq uint16
}

// Diag answers ping probes and drives ping/traceroute sessions. Each
// outstanding probe parks on a channel; PING_REP and TTL_EXC frames
// settle it.
type Diag struct {
	s *state.State

	mu      sync.Mutex
	nextSeq uint16
	waiters map[probeKey]chan probeResult
}

func (d *Diag) Init(s *state.State) error {
	d.s = s
	d.waiters = make(map[probeKey]chan probeResult)
	return nil
}

func (d *Diag) Cleanup(s *state.State) error {
	return nil
}

// probe fires one PING_REQ and waits for whatever comes back first.
func (d *Diag) probe(dst state.NodeId, ttl uint8, timeout time.Duration) (probeResult, bool) {
	d.mu.Lock()
	d.nextSeq++
	seq := d.nextSeq
	key := probeKey{dst: dst, seq: seq}
	ch := make(chan probeResult, 1)
	d.waiters[key] = ch
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.waiters, key)
		d.mu.Unlock()
	}()

	sentAt := time.Now()
	f := &wire.Frame{
		Src:  d.s.SelfId(),
		Dst:  dst,
		Seq:  seq,
		Type: wire.PingReq,
		TTL:  ttl,
		Body: []byte(strconv.FormatInt(sentAt.UnixNano(), 10)),
	}
	if err := Get[*Forwarder](d.s).SendLocal(f.Seal()); err != nil {
		// probes report failure by timing out, same as a lost frame
		d.s.Log.Debug("probe not sent", "dst", dst, "err", err)
	}

	select {
	case res := <-ch:
		if res.rtt == 0 {
			// ttl reports don't echo the timestamp
			res.rtt = time.Since(sentAt)
		}
		return res, true
	case <-time.After(timeout):
		return probeResult{}, false
	case <-d.s.Context.Done():
		return probeResult{}, false
	}
}

// Ping sends count probes at full TTL and aggregates round-trip stats.
func (d *Diag) Ping(dst state.NodeId, count int) PingReport {
	rep := PingReport{Dest: dst}
	for i := 0; i < count; i++ {
		rep.Sent++
		res, ok := d.probe(dst, d.s.Timing.MaxTTL, d.s.Timing.PingTimeout)
		if ok && res.reached {
			rep.Received++
			rep.Rtts = append(rep.Rtts, res.rtt)
			d.s.Log.Info("ping reply", "from", res.from, "rtt", res.rtt)
		} else {
			rep.Lost++
			d.s.Log.Info("ping timeout", "dst", dst)
		}
		if i < count-1 {
			select {
			case <-time.After(d.s.Timing.PingInterval):
			case <-d.s.Context.Done():
				return rep
			}
		}
	}
	for i, rtt := range rep.Rtts {
		if i == 0 || rtt < rep.Min {
			rep.Min = rtt
		}
		if rtt > rep.Max {
			rep.Max = rtt
		}
		rep.Avg += rtt
	}
	if len(rep.Rtts) > 0 {
		rep.Avg /= time.Duration(len(rep.Rtts))
	}
	return rep
}

// Traceroute probes with increasing TTL until dst answers or maxHops is
// reached. Intermediate hops identify themselves through TTL_EXC reports.
func (d *Diag) Traceroute(dst state.NodeId, maxHops int) []Hop {
	hops := make([]Hop, 0, maxHops)
	for ttl := 1; ttl <= maxHops; ttl++ {
		res, ok := d.probe(dst, uint8(ttl), d.s.Timing.TraceTimeout)
		hop := Hop{TTL: ttl}
		if ok {
			hop.From = res.from
			hop.Rtt = res.rtt
			hop.Reached = res.reached
		} else {
			hop.TimedOut = true
		}
		hops = append(hops, hop)
		d.s.Log.Info("traceroute hop", "ttl", ttl, "from", hop.From, "rtt", hop.Rtt, "reached", hop.Reached)
		if hop.Reached {
			break
		}
		if d.s.Context.Err() != nil {
			break
		}
	}
	return hops
}

func (d *Diag) HandlePingReq(f *wire.Frame) {
	if f.Corrupt {
		d.s.Log.Debug("dropping corrupt ping request", "src", f.Src)
		return
	}
	reply := &wire.Frame{
		Src:  d.s.SelfId(),
		Dst:  f.Src,
		Seq:  f.Seq,
		Type: wire.PingReply,
		TTL:  d.s.Timing.MaxTTL,
		Body: f.Body, // echo the sender's timestamp
	}
	if err := Get[*Forwarder](d.s).SendLocal(reply.Seal()); err != nil {
		d.s.Log.Debug("ping reply failed", "dst", f.Src, "err", err)
	}
}

func (d *Diag) HandlePingReply(f *wire.Frame) {
	if f.Corrupt {
		return
	}
	var rtt time.Duration
	if ns, err := strconv.ParseInt(string(f.Body), 10, 64); err == nil {
		rtt = time.Since(time.Unix(0, ns))
	}
	d.settle(probeKey{dst: f.Src, seq: f.Seq}, probeResult{from: f.Src, rtt: rtt, reached: true})
}

// HandleTTLExceeded settles the probe whose frame died in transit. The body
// names the reporting hop and the destination the dead frame was heading
// for; a report about some other destination's frame leaves the probe alone.
func (d *Diag) HandleTTLExceeded(f *wire.Frame) {
	if f.Corrupt {
		return
	}
	reporter, origDst, _ := strings.Cut(string(f.Body), "|")
	if !d.settle(probeKey{dst: state.NodeId(origDst), seq: f.Seq}, probeResult{from: state.NodeId(reporter), reached: false}) {
		// a non-probe frame ran out of ttl somewhere, worth knowing
		d.s.Log.Warn("frame exceeded ttl in transit", "reportedBy", reporter, "dst", origDst, "seq", f.Seq)
	}
}

func (d *Diag) settle(key probeKey, res probeResult) bool {
	d.mu.Lock()
	ch, ok := d.waiters[key]
	if ok {
		delete(d.waiters, key)
	}
	d.mu.Unlock()
	if !ok {
		return false
	}
	ch <- res
	return true
}
