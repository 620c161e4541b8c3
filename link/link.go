// Package link is the boundary between the protocol and the physical medium.
// A Link is one point-to-point duplex byte pipe carrying newline-terminated
// frames; TCP connections and in-memory pipes both satisfy it, a real serial
// device would too.
package link

import (
	"github.com/google/uuid"
	"github.com/strandnet/strand/wire"
)

type Link interface {
	Id() uuid.UUID
	// Send encodes and writes one frame. Safe for concurrent use.
	Send(f *wire.Frame) error
	// Recv blocks for the next line and decodes it. Not safe for
	// concurrent use; one reader per link. A structurally bad line
	// returns an error wrapping wire.ErrMalformedFrame, the link
	// stays usable.
	Recv() (*wire.Frame, error)
	Close() error
	// Remote names the other end for logging.
	Remote() string
	// IsRemote reports whether the other end initiated the connection.
	IsRemote() bool
}
