package core

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strandnet/strand/link"
	"github.com/strandnet/strand/state"
	"github.com/strandnet/strand/wire"
	"golang.org/x/sync/errgroup"
)

// LinkMgr owns every open link: it accepts inbound connections, redials
// configured peers, runs one read worker per link and routes inbound frames
// to the right module. A read error closes only the affected link.
type LinkMgr struct {
	s        *state.State
	listener net.Listener

	mu    sync.Mutex
	links map[uuid.UUID]link.Link
	peers map[state.NodeId]uuid.UUID // outbound links by peer id
}

func (lm *LinkMgr) Init(s *state.State) error {
	lm.s = s
	lm.links = make(map[uuid.UUID]link.Link)
	lm.peers = make(map[state.NodeId]uuid.UUID)

	if s.LocalCfg.Bind != "" {
		ln, err := net.Listen("tcp", s.LocalCfg.Bind)
		if err != nil {
			return err
		}
		lm.listener = ln
		s.Log.Info("listening for links", "bind", s.LocalCfg.Bind)
		go lm.acceptLoop()
	}

	s.RepeatTask(lm.dialPeers, s.Timing.DialRetryInterval)
	return nil
}

func (lm *LinkMgr) Cleanup(s *state.State) error {
	if lm.listener != nil {
		_ = lm.listener.Close()
	}
	lm.mu.Lock()
	links := make([]link.Link, 0, len(lm.links))
	for _, l := range lm.links {
		links = append(links, l)
	}
	lm.mu.Unlock()
	for _, l := range links {
		_ = l.Close()
	}
	return nil
}

func (lm *LinkMgr) acceptLoop() {
	for {
		conn, err := lm.listener.Accept()
		if err != nil {
			if lm.s.Context.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			lm.s.Log.Warn("accept failed", "err", err)
			continue
		}
		lm.Attach(link.NewStream(conn, true), "")
	}
}

// dialPeers opens links towards configured peers that we cannot currently
// hear. Both ends of an edge may dial at once; the duplicate link is
// harmless and dies with its TCP connection.
func (lm *LinkMgr) dialPeers() error {
	g := errgroup.Group{}
	for _, peer := range lm.s.CentralCfg.GetPeers(lm.s.SelfId()) {
		if _, ok := lm.s.Neighbours.Get(peer); ok {
			continue
		}
		lm.mu.Lock()
		_, dialled := lm.peers[peer]
		lm.mu.Unlock()
		if dialled {
			continue
		}
		ncfg := lm.s.CentralCfg.TryGetNode(peer)
		if ncfg == nil || ncfg.Bind == "" {
			continue
		}
		g.Go(func() error {
			l, err := link.Dial(ncfg.Bind, time.Second*2)
			if err != nil {
				lm.s.Log.Debug("dial failed", "peer", ncfg.Id, "addr", ncfg.Bind, "err", err)
				return nil
			}
			lm.Attach(l, ncfg.Id)
			return nil
		})
	}
	return g.Wait()
}

// Attach registers a link and starts its read worker. peer is the expected
// node at the other end for outbound dials, empty for accepted links.
func (lm *LinkMgr) Attach(l link.Link, peer state.NodeId) {
	lm.mu.Lock()
	lm.links[l.Id()] = l
	if peer != "" {
		lm.peers[peer] = l.Id()
	}
	lm.mu.Unlock()
	lm.s.Log.Info("link up", "link", l.Id(), "remote", l.Remote(), "inbound", l.IsRemote())
	go lm.readLoop(l, peer)
}

func (lm *LinkMgr) detach(l link.Link, peer state.NodeId) {
	lm.mu.Lock()
	delete(lm.links, l.Id())
	if peer != "" && lm.peers[peer] == l.Id() {
		delete(lm.peers, peer)
	}
	lm.mu.Unlock()
	_ = l.Close()
	if lm.s.Context.Err() == nil {
		lm.s.Log.Info("link down", "link", l.Id(), "remote", l.Remote())
	}
}

func (lm *LinkMgr) readLoop(l link.Link, peer state.NodeId) {
	defer lm.detach(l, peer)
	for {
		f, err := l.Recv()
		if err != nil {
			if errors.Is(err, wire.ErrMalformedFrame) {
				lm.s.Log.Warn("dropping malformed frame", "link", l.Id(), "err", err)
				emit(lm.s, FrameEvent{Type: EventFrameDropped, Node: lm.s.SelfId(), Reason: "malformed"})
				continue
			}
			if lm.s.Context.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				lm.s.Log.Warn("link read failed", "link", l.Id(), "err", err)
			}
			return
		}
		lm.dispatch(f, l)
	}
}

func (lm *LinkMgr) dispatch(f *wire.Frame, l link.Link) {
	if state.DBG_log_frames {
		lm.s.Log.Debug("recv", "type", f.Type, "src", f.Src, "dst", f.Dst, "seq", f.Seq, "ttl", f.TTL)
	}
	emitFrame(lm.s, EventFrameReceived, f, "")
	switch f.Type {
	case wire.Hello:
		Get[*Hello](lm.s).HandleHello(f, l)
	case wire.DV:
		Get[*Router](lm.s).HandleAdvert(f, l)
	default:
		Get[*Forwarder](lm.s).Handle(f)
	}
}

// Broadcast sends f on every open link.
func (lm *LinkMgr) Broadcast(f *wire.Frame) {
	lm.mu.Lock()
	links := make([]link.Link, 0, len(lm.links))
	for _, l := range lm.links {
		links = append(links, l)
	}
	lm.mu.Unlock()
	for _, l := range links {
		if err := l.Send(f); err != nil {
			lm.s.Log.Debug("broadcast send failed", "link", l.Id(), "err", err)
		}
	}
}

// SendOn sends f on one specific link.
func (lm *LinkMgr) SendOn(id uuid.UUID, f *wire.Frame) error {
	lm.mu.Lock()
	l, ok := lm.links[id]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("link %s is gone", id)
	}
	return l.Send(f)
}

// Links snapshots the open links.
func (lm *LinkMgr) Links() []link.Link {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	links := make([]link.Link, 0, len(lm.links))
	for _, l := range lm.links {
		links = append(links, l)
	}
	return links
}
