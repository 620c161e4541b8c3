//go:build integration

package integration

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strandnet/strand/core"
	"github.com/strandnet/strand/mock"
	"github.com/strandnet/strand/state"
	"go.uber.org/goleak"
)

type sink struct {
	mu       sync.Mutex
	payloads []string
}

func (s *sink) deliver(src state.NodeId, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, string(payload))
}

func (s *sink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

// countEvents subscribes to a node's event stream and counts events of one
// type until the returned stop function runs.
func countEvents(n *core.Node, typ core.EventType) (count func() int, stop func()) {
	ch := make(chan interface{}, 1024)
	n.Events().Register(ch)
	var mu sync.Mutex
	c := 0
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev := <-ch:
				if fe, ok := ev.(core.FrameEvent); ok && fe.Type == typ {
					mu.Lock()
					c++
					mu.Unlock()
				}
			case <-quit:
				return
			}
		}
	}()
	return func() int {
			mu.Lock()
			defer mu.Unlock()
			return c
		}, func() {
			n.Events().Unregister(ch)
			close(quit)
			<-done
		}
}

func TestRelayedReliableDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b", "c")
	require.NoError(t, err)
	defer c.Stop()
	require.NoError(t, c.Connect("a", "b"))
	require.NoError(t, c.Connect("b", "c"))

	s := &sink{}
	c.Nodes["c"].OnDeliver(s.deliver)
	waitRoute(t, c.Nodes["a"], "c", 2, "b")

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, c.Nodes["a"].Send("c", []byte(msg)))
	}
	require.Eventually(t, func() bool { return len(s.got()) == 3 }, time.Second*2, time.Millisecond*5)
	assert.Equal(t, []string{"one", "two", "three"}, s.got(), "in order, exactly once")
}

func TestCorruptionCausesOneRetransmission(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b")
	require.NoError(t, err)
	defer c.Stop()
	require.NoError(t, c.Connect("a", "b"))

	s := &sink{}
	c.Nodes["b"].OnDeliver(s.deliver)
	waitRoute(t, c.Nodes["a"], "b", 1, "b")

	retransmits, stopCount := countEvents(c.Nodes["a"], core.EventRetransmit)
	defer stopCount()

	c.Nodes["a"].SetCorruptSimulation(true)
	require.NoError(t, c.Nodes["a"].Send("b", []byte("fixme")))

	assert.Equal(t, []string{"fixme"}, s.got())
	require.Eventually(t, func() bool { return retransmits() == 1 }, time.Second, time.Millisecond*5,
		"the corrupted attempt is dropped, the clean retry lands")
}

func TestDeliveryFailsWithoutReceiver(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b", "c")
	require.NoError(t, err)
	defer c.Stop()
	require.NoError(t, c.Connect("a", "b"))
	require.NoError(t, c.Connect("b", "c"))
	waitRoute(t, c.Nodes["a"], "c", 2, "b")

	// kill c: the acks never come back. Depending on whether b's poison
	// reaches a mid-retry, the send fails on attempts or on the route.
	c.Nodes["c"].Stop()
	err = c.Nodes["a"].Send("c", []byte("void"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeliveryFailed) || errors.Is(err, core.ErrNoRoute), "err = %v", err)
}
