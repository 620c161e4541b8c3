package mock

import (
	"io"
	"net"
	"slices"
	"sync"
	"time"
)

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// pipeConn is one end of a buffered in-memory duplex connection. Unlike
// net.Pipe it does not rendezvous on every byte, so two nodes can write to
// each other at the same time without their read workers being ready.
type pipeConn struct {
	recv   <-chan []byte
	send   chan<- []byte
	done   chan struct{}
	closer *sync.Once
	rest   []byte
}

// Pipe returns both ends of a buffered in-memory connection. Closing either
// end tears down both directions.
func Pipe() (net.Conn, net.Conn) {
	ab := make(chan []byte, 1024)
	ba := make(chan []byte, 1024)
	done := make(chan struct{})
	closer := &sync.Once{}
	a := &pipeConn{recv: ba, send: ab, done: done, closer: closer}
	b := &pipeConn{recv: ab, send: ba, done: done, closer: closer}
	return a, b
}

func (c *pipeConn) Read(p []byte) (int, error) {
	if len(c.rest) == 0 {
		select {
		case chunk := <-c.recv:
			c.rest = chunk
		case <-c.done:
			return 0, io.EOF
		}
	}
	n := copy(p, c.rest)
	c.rest = c.rest[n:]
	return n, nil
}

func (c *pipeConn) Write(p []byte) (int, error) {
	select {
	case c.send <- slices.Clone(p):
		return len(p), nil
	case <-c.done:
		return 0, net.ErrClosed
	}
}

func (c *pipeConn) Close() error {
	c.closer.Do(func() { close(c.done) })
	return nil
}

func (c *pipeConn) LocalAddr() net.Addr                { return pipeAddr{} }
func (c *pipeConn) RemoteAddr() net.Addr               { return pipeAddr{} }
func (c *pipeConn) SetDeadline(t time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(t time.Time) error { return nil }
