//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strandnet/strand/core"
	"github.com/strandnet/strand/mock"
	"github.com/strandnet/strand/state"
	"go.uber.org/goleak"
)

func TestPingStats(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b", "c")
	require.NoError(t, err)
	defer c.Stop()
	require.NoError(t, c.Connect("a", "b"))
	require.NoError(t, c.Connect("b", "c"))
	waitRoute(t, c.Nodes["a"], "c", 2, "b")

	rep := c.Nodes["a"].Ping("c", 3)
	assert.Equal(t, 3, rep.Sent)
	assert.Equal(t, 3, rep.Received)
	assert.Zero(t, rep.Lost)
	require.Len(t, rep.Rtts, 3)
	assert.LessOrEqual(t, rep.Min, rep.Avg)
	assert.LessOrEqual(t, rep.Avg, rep.Max)
	assert.Greater(t, rep.Max, time.Duration(0))
}

func TestPingUnreachable(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b")
	require.NoError(t, err)
	defer c.Stop()
	require.NoError(t, c.Connect("a", "b"))
	waitRoute(t, c.Nodes["a"], "b", 1, "b")

	rep := c.Nodes["a"].Ping("ghost", 2)
	assert.Equal(t, 2, rep.Sent)
	assert.Zero(t, rep.Received)
	assert.Equal(t, 2, rep.Lost)
}

func TestTraceroute(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b", "c")
	require.NoError(t, err)
	defer c.Stop()
	require.NoError(t, c.Connect("a", "b"))
	require.NoError(t, c.Connect("b", "c"))
	waitRoute(t, c.Nodes["a"], "c", 2, "b")

	hops := c.Nodes["a"].Traceroute("c", 8)
	require.Len(t, hops, 2)

	assert.Equal(t, state.NodeId("b"), hops[0].From, "first hop reports itself via TTL_EXC")
	assert.False(t, hops[0].Reached)
	assert.False(t, hops[0].TimedOut)

	assert.Equal(t, state.NodeId("c"), hops[1].From)
	assert.True(t, hops[1].Reached)
}

func TestTracerouteStopsAtMaxHops(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b", "c")
	require.NoError(t, err)
	defer c.Stop()
	require.NoError(t, c.Connect("a", "b"))
	require.NoError(t, c.Connect("b", "c"))
	waitRoute(t, c.Nodes["a"], "c", 2, "b")

	hops := c.Nodes["a"].Traceroute("c", 1)
	require.Len(t, hops, 1)
	assert.False(t, hops[0].Reached)
}

func TestTopologySnapshots(t *testing.T) {
	defer goleak.VerifyNone(t)
	c, err := mock.NewCluster("a", "b")
	require.NoError(t, err)
	defer c.Stop()

	ch := make(chan interface{}, 1024)
	c.Nodes["a"].Events().Register(ch)
	defer c.Nodes["a"].Events().Unregister(ch)

	require.NoError(t, c.Connect("a", "b"))

	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-ch:
				if snap, ok := ev.(core.TopologySnapshot); ok {
					e, found := snap.Table["b"]
					if found && snap.SelfId == "a" && e.Cost == 1 && e.NextHop == "b" {
						return true
					}
				}
			default:
				return false
			}
		}
	}, time.Second*2, time.Millisecond*10)
}
