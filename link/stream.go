package link

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

// StreamLink frames a duplex byte stream. Writes are serialized by a mutex,
// each Send is a single Write call so frames never interleave.
type StreamLink struct {
	id     uuid.UUID
	conn   net.Conn
	reader *bufio.Reader
	remote bool

	writeLock sync.Mutex
}

func NewStream(conn net.Conn, remote bool) *StreamLink {
	return &StreamLink{
		id:     uuid.New(),
		conn:   conn,
		reader: bufio.NewReaderSize(conn, state.MaxFrameSize),
		remote: remote,
	}
}

func Dial(addr string, timeout time.Duration) (*StreamLink, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return NewStream(conn, false), nil
}

func (l *StreamLink) Id() uuid.UUID {
	return l.id
}

func (l *StreamLink) Send(f *wire.Frame) error {
	l.writeLock.Lock()
	defer l.writeLock.Unlock()
	_, err := l.conn.Write(wire.Encode(f))
	return err
}

func (l *StreamLink) Recv() (*wire.Frame, error) {
	line, err := l.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		// a line too long to be a frame: discard up to the next
		// newline and stay alive, the failure belongs to that frame
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = l.reader.ReadSlice('\n')
		}
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: line longer than %d bytes", wire.ErrMalformedFrame, state.MaxFrameSize)
	}
	if err != nil {
		return nil, err
	}
	return wire.Decode(line)
}

func (l *StreamLink) Close() error {
	return l.conn.Close()
}

func (l *StreamLink) Remote() string {
	return l.conn.RemoteAddr().String()
}

func (l *StreamLink) IsRemote() bool {
	return l.remote
}
