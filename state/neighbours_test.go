package state

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeighbourUpsert(t *testing.T) {
	nt := NewNeighbourTable(time.Minute)
	nt.Start()
	defer nt.Stop()

	l1, l2 := uuid.New(), uuid.New()
	assert.True(t, nt.Upsert("b", l1))
	assert.False(t, nt.Upsert("b", l1), "refresh is not new")
	assert.False(t, nt.Upsert("b", l2), "rebinding to a new link is not new")

	n, ok := nt.Get("b")
	require.True(t, ok)
	assert.Equal(t, l2, n.Link)
	assert.Len(t, nt.List(), 1)
}

func TestNeighbourEviction(t *testing.T) {
	nt := NewNeighbourTable(time.Millisecond * 30)
	var evicted atomic.Int32
	nt.OnEvict(func(n Neighbour) {
		assert.Equal(t, NodeId("b"), n.Id)
		evicted.Add(1)
	})
	nt.Start()
	defer nt.Stop()

	nt.Upsert("b", uuid.New())
	require.Eventually(t, func() bool {
		return evicted.Load() == 1
	}, time.Second, time.Millisecond*5)
	_, ok := nt.Get("b")
	assert.False(t, ok)
}

func TestNeighbourRefreshKeepsAlive(t *testing.T) {
	nt := NewNeighbourTable(time.Millisecond * 60)
	var evicted atomic.Int32
	nt.OnEvict(func(n Neighbour) { evicted.Add(1) })
	nt.Start()
	defer nt.Stop()

	l := uuid.New()
	nt.Upsert("b", l)
	for i := 0; i < 6; i++ {
		time.Sleep(time.Millisecond * 25)
		nt.Upsert("b", l)
	}
	assert.Zero(t, evicted.Load())
	_, ok := nt.Get("b")
	assert.True(t, ok)
}
