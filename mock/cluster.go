// Package mock builds in-memory clusters of real nodes joined by pipe links,
// with protocol intervals compressed so multi-hop scenarios settle in
// fractions of a second.
package mock

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/strandnet/strand/core"
	"github.com/strandnet/strand/link"
	"github.com/strandnet/strand/state"
)

// Timing returns intervals compressed for tests.
func Timing() state.Timing {
	return state.Timing{
		HelloInterval:     time.Millisecond * 40,
		DvInterval:        time.Millisecond * 60,
		NeighbourTimeout:  time.Millisecond * 250,
		AckTimeout:        time.Millisecond * 150,
		MaxSendAttempts:   3,
		MaxTTL:            16,
		PingTimeout:       time.Millisecond * 250,
		PingInterval:      time.Millisecond * 10,
		TraceTimeout:      time.Millisecond * 250,
		DialRetryInterval: time.Hour, // edges are wired by Connect, never dialled
	}
}

type edge struct {
	a, b state.NodeId
}

func mkEdge(a, b state.NodeId) edge {
	if b < a {
		a, b = b, a
	}
	return edge{a, b}
}

type edgeLinks struct {
	a, b link.Link
}

type Cluster struct {
	Nodes map[state.NodeId]*core.Node
	links map[edge]edgeLinks
}

// NewCluster starts one node per id. No links exist yet; wire the topology
// with Connect.
func NewCluster(ids ...state.NodeId) (*Cluster, error) {
	ccfg := state.CentralCfg{}
	for _, id := range ids {
		ccfg.Nodes = append(ccfg.Nodes, state.NodeCfg{Id: id})
	}
	tm := Timing()

	c := &Cluster{
		Nodes: make(map[state.NodeId]*core.Node),
		links: make(map[edge]edgeLinks),
	}
	for _, id := range ids {
		node, err := core.Start(ccfg, state.LocalCfg{Id: id}, slog.LevelWarn, &tm)
		if err != nil {
			c.Stop()
			return nil, err
		}
		c.Nodes[id] = node
	}
	return c, nil
}

// Connect joins a and b with a fresh pipe link, as if a cable was plugged in.
func (c *Cluster) Connect(a, b state.NodeId) error {
	na, nb := c.Nodes[a], c.Nodes[b]
	if na == nil || nb == nil {
		return fmt.Errorf("unknown node in edge %s-%s", a, b)
	}
	ca, cb := Pipe()
	la := link.NewStream(ca, false)
	lb := link.NewStream(cb, true)
	na.AttachLink(la)
	nb.AttachLink(lb)
	c.links[mkEdge(a, b)] = edgeLinks{a: la, b: lb}
	return nil
}

// Disconnect cuts the cable between a and b. Both ends see their link die;
// the neighbour entries age out on their own.
func (c *Cluster) Disconnect(a, b state.NodeId) {
	e := mkEdge(a, b)
	if ls, ok := c.links[e]; ok {
		_ = ls.a.Close()
		_ = ls.b.Close()
		delete(c.links, e)
	}
}

func (c *Cluster) Stop() {
	for _, n := range c.Nodes {
		n.Stop()
	}
}
