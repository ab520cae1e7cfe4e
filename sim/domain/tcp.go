package domain

import (
	"encoding/gob"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spikesim/spikesim/sim"
)

// dialRetries bounds how long a starting domain waits for its lower-ranked
// peers to begin listening.
const (
	dialRetries  = 150
	dialInterval = 100 * time.Millisecond
)

// frame is one collective contribution on a peer link. Seq guards against
// domains drifting out of lock-step: a mismatch is a protocol violation and
// the process aborts rather than silently mixing rounds.
type frame struct {
	Seq    uint64
	Floats []float64
	Spikes []sim.Spike
	Count  int
}

// TCP implements sim.Policy across separate processes using a full mesh of
// persistent TCP connections with gob-encoded frames. Domain i listens on
// addrs[i]; during setup every domain dials all lower-ranked peers and
// accepts from all higher-ranked ones, so each pair shares one connection.
//
// Collectives are synchronous: each domain writes its contribution to every
// peer, reads one contribution from every peer, and combines them in domain
// order. Transport failures are fatal (panic) — a torn mesh cannot satisfy
// the lock-step contract, so there is nothing to recover.
type TCP struct {
	id    int
	addrs []string

	listener net.Listener
	conns    []net.Conn
	encs     []*gob.Encoder
	decs     []*gob.Decoder
	seq      uint64
}

// NewTCP joins the mesh as domain id of len(addrs) domains. It blocks until
// every peer link is established.
func NewTCP(id int, addrs []string) (*TCP, error) {
	n := len(addrs)
	if n < 1 {
		return nil, fmt.Errorf("domain.NewTCP: no peer addresses")
	}
	if id < 0 || id >= n {
		return nil, fmt.Errorf("domain.NewTCP: id %d out of range for %d domains", id, n)
	}

	t := &TCP{
		id:    id,
		addrs: addrs,
		conns: make([]net.Conn, n),
		encs:  make([]*gob.Encoder, n),
		decs:  make([]*gob.Decoder, n),
	}
	if n == 1 {
		return t, nil
	}

	ln, err := net.Listen("tcp", addrs[id])
	if err != nil {
		return nil, fmt.Errorf("domain %d: listen %s: %w", id, addrs[id], err)
	}
	t.listener = ln

	// Dial every lower-ranked peer; they were (or will be) listening first.
	for peer := 0; peer < id; peer++ {
		conn, err := dialPeer(addrs[peer])
		if err != nil {
			ln.Close()
			return nil, fmt.Errorf("domain %d: dial domain %d: %w", id, peer, err)
		}
		if err := gob.NewEncoder(conn).Encode(id); err != nil {
			ln.Close()
			return nil, fmt.Errorf("domain %d: handshake with domain %d: %w", id, peer, err)
		}
		t.attach(peer, conn)
	}

	// Accept one connection from every higher-ranked peer; the dialer
	// identifies itself in the handshake.
	for accepted := 0; accepted < n-1-id; accepted++ {
		conn, err := ln.Accept()
		if err != nil {
			ln.Close()
			return nil, fmt.Errorf("domain %d: accept: %w", id, err)
		}
		var peer int
		if err := gob.NewDecoder(conn).Decode(&peer); err != nil {
			ln.Close()
			return nil, fmt.Errorf("domain %d: handshake: %w", id, err)
		}
		if peer <= id || peer >= n || t.conns[peer] != nil {
			ln.Close()
			return nil, fmt.Errorf("domain %d: unexpected handshake from %d", id, peer)
		}
		t.attach(peer, conn)
	}

	logrus.Infof("domain %d: TCP mesh of %d domains established", id, n)
	return t, nil
}

func dialPeer(addr string) (net.Conn, error) {
	var err error
	for i := 0; i < dialRetries; i++ {
		var conn net.Conn
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		time.Sleep(dialInterval)
	}
	return nil, err
}

func (t *TCP) attach(peer int, conn net.Conn) {
	t.conns[peer] = conn
	t.encs[peer] = gob.NewEncoder(conn)
	t.decs[peer] = gob.NewDecoder(conn)
}

// Close tears down the mesh. The policy is unusable afterwards.
func (t *TCP) Close() error {
	var first error
	for _, conn := range t.conns {
		if conn != nil {
			if err := conn.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	if t.listener != nil {
		if err := t.listener.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ID returns this domain's rank.
func (t *TCP) ID() int { return t.id }

// Size returns the total domain count.
func (t *TCP) Size() int { return len(t.addrs) }

// Name identifies the policy in banners and logs.
func (t *TCP) Name() string { return "tcp" }

// gather sends f to every peer and returns all domains' frames in domain
// order, with this domain's own frame in position t.id.
func (t *TCP) gather(f frame) []frame {
	t.seq++
	f.Seq = t.seq

	frames := make([]frame, len(t.addrs))
	frames[t.id] = f

	// Writes run concurrently so two domains sending large payloads to each
	// other cannot deadlock on full socket buffers.
	var wg sync.WaitGroup
	errs := make([]error, len(t.addrs))
	for peer, enc := range t.encs {
		if peer == t.id {
			continue
		}
		wg.Add(1)
		go func(peer int, enc *gob.Encoder) {
			defer wg.Done()
			errs[peer] = enc.Encode(f)
		}(peer, enc)
	}

	for peer, dec := range t.decs {
		if peer == t.id {
			continue
		}
		var in frame
		if err := dec.Decode(&in); err != nil {
			panic(fmt.Sprintf("domain %d: receive from domain %d: %v", t.id, peer, err))
		}
		if in.Seq != t.seq {
			panic(fmt.Sprintf("domain %d: collective sequence mismatch with domain %d (got %d, want %d)",
				t.id, peer, in.Seq, t.seq))
		}
		frames[peer] = in
	}
	wg.Wait()
	for peer, err := range errs {
		if err != nil {
			panic(fmt.Sprintf("domain %d: send to domain %d: %v", t.id, peer, err))
		}
	}
	return frames
}

// MinReduce returns the minimum of x across all domains. Blocking collective.
func (t *TCP) MinReduce(x float64) float64 {
	if len(t.addrs) == 1 {
		return x
	}
	min := math.Inf(1)
	for _, f := range t.gather(frame{Floats: []float64{x}}) {
		for _, v := range f.Floats {
			if v < min {
				min = v
			}
		}
	}
	return min
}

// ExchangeSpikes returns all domains' spikes concatenated in domain order.
// Blocking collective.
func (t *TCP) ExchangeSpikes(local []sim.Spike) []sim.Spike {
	if len(t.addrs) == 1 {
		out := make([]sim.Spike, len(local))
		copy(out, local)
		return out
	}
	var out []sim.Spike
	for _, f := range t.gather(frame{Spikes: local}) {
		out = append(out, f.Spikes...)
	}
	return out
}

// MakeOffsetMap gathers every domain's count and returns the prefix-sum
// partition of length Size()+1. Blocking collective.
func (t *TCP) MakeOffsetMap(localCount int) []int {
	if len(t.addrs) == 1 {
		return []int{0, localCount}
	}
	frames := t.gather(frame{Count: localCount})
	offsets := make([]int, len(t.addrs)+1)
	for i, f := range frames {
		offsets[i+1] = offsets[i] + f.Count
	}
	return offsets
}
