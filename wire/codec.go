package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/strandnet/strand/state"
)

// ErrMalformedFrame reports a line that is not structurally a frame. A bad
// checksum is not malformed, Decode annotates it via Frame.Corrupt instead.
var ErrMalformedFrame = errors.New("malformed frame")

// maxHeaderSize is the worst case for the six header fields and their
// separators (two 100-char node ids, full-width numbers, the type tag).
const maxHeaderSize = 256

// MaxBodySize bounds a frame body so the whole encoded line stays within
// state.MaxFrameSize.
const MaxBodySize = state.MaxFrameSize - maxHeaderSize

// CheckBody reports whether body can be carried by a frame: the line codec
// cannot represent a newline, and an over-long line would not survive the
// receiver's read buffer.
func CheckBody(body []byte) error {
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		return fmt.Errorf("body contains a newline at offset %d", i)
	}
	if len(body) > MaxBodySize {
		return fmt.Errorf("body is %d bytes, limit %d", len(body), MaxBodySize)
	}
	return nil
}

// Encode renders f as one newline-terminated line:
//
//	src|dst|seq|checksum|type|ttl|body\n
//
// The checksum field is written as-is, callers Seal first (or deliberately
// don't, to simulate corruption). The body must satisfy CheckBody; the
// transport enforces that before a payload ever reaches the codec.
func Encode(f *Frame) []byte {
	var b bytes.Buffer
	b.Grow(len(f.Body) + 64)
	fmt.Fprintf(&b, "%s|%s|%d|%d|%s|%d|", f.Src, f.Dst, f.Seq, f.Checksum, f.Type, f.TTL)
	b.Write(f.Body)
	b.WriteByte('\n')
	return b.Bytes()
}

// Decode parses one line back into a frame. Structural problems return
// ErrMalformedFrame; a checksum mismatch returns a frame with Corrupt set,
// the receiver decides what to do with it.
func Decode(line []byte) (*Frame, error) {
	line = bytes.TrimRight(line, "\r\n")
	parts := bytes.SplitN(line, []byte{'|'}, 7)
	if len(parts) != 7 {
		return nil, fmt.Errorf("%w: %d fields", ErrMalformedFrame, len(parts))
	}

	f := &Frame{
		Src: state.NodeId(parts[0]),
		Dst: state.NodeId(parts[1]),
	}
	if f.Src == "" || f.Dst == "" {
		return nil, fmt.Errorf("%w: empty node id", ErrMalformedFrame)
	}

	seq, err := strconv.ParseUint(string(parts[2]), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: seq: %w", ErrMalformedFrame, err)
	}
	f.Seq = uint16(seq)

	chk, err := strconv.ParseUint(string(parts[3]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum: %w", ErrMalformedFrame, err)
	}
	f.Checksum = uint32(chk)

	f.Type, err = ParseType(string(parts[4]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	ttl, err := strconv.ParseUint(string(parts[5]), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: ttl: %w", ErrMalformedFrame, err)
	}
	f.TTL = uint8(ttl)

	if len(parts[6]) > 0 {
		f.Body = bytes.Clone(parts[6])
	}

	f.Corrupt = f.Checksum != f.Digest()
	return f, nil
}
