package link_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strandnet/strand/link"
	"github.com/strandnet/strand/mock"
	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
)

func TestStreamSendRecv(t *testing.T) {
	ca, cb := mock.Pipe()
	la := link.NewStream(ca, false)
	lb := link.NewStream(cb, true)
	defer la.Close()

	f := (&wire.Frame{Src: "a", Dst: "b", Seq: 1, Type: wire.Data, TTL: 4, Body: []byte("x")}).Seal()
	require.NoError(t, la.Send(f))

	g, err := lb.Recv()
	require.NoError(t, err)
	assert.Equal(t, f.Body, g.Body)
	assert.False(t, g.Corrupt)
	assert.NotEqual(t, la.Id(), lb.Id())
}

func TestStreamSurvivesMalformedLine(t *testing.T) {
	ca, cb := mock.Pipe()
	la := link.NewStream(ca, false)
	lb := link.NewStream(cb, true)
	defer la.Close()

	_, err := ca.Write([]byte("line noise, not a frame\n"))
	require.NoError(t, err)
	f := (&wire.Frame{Src: "a", Dst: "b", Seq: 2, Type: wire.Hello, TTL: 1}).Seal()
	require.NoError(t, la.Send(f))

	_, err = lb.Recv()
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)

	g, err := lb.Recv()
	require.NoError(t, err)
	assert.Equal(t, wire.Hello, g.Type)
}

func TestStreamSurvivesOverlongLine(t *testing.T) {
	ca, cb := mock.Pipe()
	la := link.NewStream(ca, false)
	lb := link.NewStream(cb, true)
	defer la.Close()

	// a line longer than any legal frame is discarded up to its newline
	// and reported as malformed; the link itself stays up
	junk := bytes.Repeat([]byte("x"), state.MaxFrameSize+100)
	junk = append(junk, '\n')
	_, err := ca.Write(junk)
	require.NoError(t, err)
	f := (&wire.Frame{Src: "a", Dst: "b", Seq: 3, Type: wire.Hello, TTL: 1}).Seal()
	require.NoError(t, la.Send(f))

	_, err = lb.Recv()
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)

	g, err := lb.Recv()
	require.NoError(t, err)
	assert.Equal(t, wire.Hello, g.Type)
	assert.Equal(t, uint16(3), g.Seq)
}

func TestStreamRecvAfterClose(t *testing.T) {
	ca, cb := mock.Pipe()
	la := link.NewStream(ca, false)
	lb := link.NewStream(cb, true)

	require.NoError(t, la.Close())
	_, err := lb.Recv()
	assert.Error(t, err)
}
