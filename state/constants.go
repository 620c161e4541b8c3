package state

import "time"

// Inf is the unreachable-cost sentinel. Costs saturate at Inf and never wrap.
const Inf = ^uint32(0)

// Local is the next hop recorded for a node's route to itself.
const Local NodeId = "LOCAL"

// Broadcast is the destination carried by single-hop broadcast frames (HELLO,
// and DV adverts sent before the link's neighbour is known).
const Broadcast NodeId = "*"

// MaxFrameSize bounds a single encoded frame line, body included.
const MaxFrameSize = 64 * 1024

// Timing groups every protocol interval so harnesses can compress them.
type Timing struct {
	HelloInterval     time.Duration
	DvInterval        time.Duration
	NeighbourTimeout  time.Duration
	AckTimeout        time.Duration
	MaxSendAttempts   int
	MaxTTL            uint8
	PingTimeout       time.Duration
	PingInterval      time.Duration
	TraceTimeout      time.Duration
	DialRetryInterval time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		HelloInterval:     time.Second * 3,
		DvInterval:        time.Second * 5,
		NeighbourTimeout:  time.Second * 10,
		AckTimeout:        time.Second * 3,
		MaxSendAttempts:   3,
		MaxTTL:            64,
		PingTimeout:       time.Second * 2,
		PingInterval:      time.Second * 1,
		TraceTimeout:      time.Second * 3,
		DialRetryInterval: time.Second * 5,
	}
}

// AddCost saturates at Inf instead of wrapping.
func AddCost(a uint32, b uint32) uint32 {
	if a == Inf || b == Inf {
		return Inf
	}
	sum := uint64(a) + uint64(b)
	if sum >= uint64(Inf) {
		return Inf
	}
	return uint32(sum)
}

// debug toggles, set from cmd flags

var (
	// DBG_log_frames logs every frame as it crosses a link
	DBG_log_frames = false
	// DBG_log_route_table logs the routing table whenever it changes
	DBG_log_route_table = false
)
