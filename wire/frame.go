package wire

import (
	"fmt"
	"hash/crc32"

	"github.com/strandnet/strand/state"
)

type Type uint8

const (
	Hello Type = iota
	DV
	Data
	Syn
	SynAck
	Ack
	TTLExceeded
	PingReq
	PingReply
)

var typeTags = [...]string{
	Hello:       "HELLO",
	DV:          "DV",
	Data:        "DATA",
	Syn:         "SYN",
	SynAck:      "SYN_ACK",
	Ack:         "ACK",
	TTLExceeded: "TTL_EXC",
	PingReq:     "PING_REQ",
	PingReply:   "PING_REP",
}

func (t Type) String() string {
	if int(t) >= len(typeTags) {
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
	return typeTags[t]
}

func ParseType(tag string) (Type, error) {
	for t, s := range typeTags {
		if s == tag {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("unknown frame type %q", tag)
}

// Frame is one protocol message. Every frame, data or control, carries the
// same header.
type Frame struct {
	Src      state.NodeId
	Dst      state.NodeId
	Seq      uint16
	Checksum uint32
	Type     Type
	TTL      uint8
	Body     []byte

	// Corrupt is set by Decode when the checksum does not match the
	// content. It is never carried on the wire.
	Corrupt bool
}

// Digest computes the CRC-32 (IEEE) of src|dst|seq|type|body. TTL and the
// checksum itself are excluded, so the per-hop TTL rewrite does not require
// resealing the frame.
func (f *Frame) Digest() uint32 {
	h := crc32.NewIEEE()
	fmt.Fprintf(h, "%s|%s|%d|%s|", f.Src, f.Dst, f.Seq, f.Type)
	h.Write(f.Body)
	return h.Sum32()
}

// Seal stamps the checksum and normalizes an empty body to nil, which is
// what Decode produces, so sealed frames round-trip exactly. Returns f for
// chaining.
func (f *Frame) Seal() *Frame {
	if len(f.Body) == 0 {
		f.Body = nil
	}
	f.Checksum = f.Digest()
	return f
}
