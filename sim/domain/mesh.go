package domain

import (
	"fmt"
	"math"
	"sync"

	"github.com/spikesim/spikesim/sim"
)

// Hub coordinates N in-process domains, one goroutine each, through shared
// slots and a reusable barrier. It lets tests and the --domains CLI mode
// exercise real multi-domain protocol behavior without a cluster, with fully
// deterministic results (collective outputs are ordered by domain id).
type Hub struct {
	size int

	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64

	floatSlots []float64
	spikeSlots [][]sim.Spike
	countSlots []int
}

// NewHub creates a hub for size in-process domains.
func NewHub(size int) *Hub {
	if size < 1 {
		panic("domain.NewHub: size must be >= 1")
	}
	h := &Hub{
		size:       size,
		floatSlots: make([]float64, size),
		spikeSlots: make([][]sim.Spike, size),
		countSlots: make([]int, size),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Domain returns the policy handle for the domain with the given rank.
// Each handle must be driven by its own goroutine.
func (h *Hub) Domain(id int) *Mesh {
	if id < 0 || id >= h.size {
		panic(fmt.Sprintf("domain.Hub: no domain %d in a hub of size %d", id, h.size))
	}
	return &Mesh{hub: h, id: id}
}

// await blocks until all size domains have reached the barrier.
// Caller must hold h.mu.
func (h *Hub) await() {
	gen := h.gen
	h.arrived++
	if h.arrived == h.size {
		h.arrived = 0
		h.gen++
		h.cond.Broadcast()
		return
	}
	for gen == h.gen {
		h.cond.Wait()
	}
}

// Mesh is one in-process domain attached to a Hub.
type Mesh struct {
	hub *Hub
	id  int
}

// ID returns this domain's rank within the hub.
func (m *Mesh) ID() int { return m.id }

// Size returns the hub's domain count.
func (m *Mesh) Size() int { return m.hub.size }

// Name identifies the policy in banners and logs.
func (m *Mesh) Name() string { return "mesh" }

// MinReduce deposits x, waits for every domain, and returns the global
// minimum. Blocking collective.
func (m *Mesh) MinReduce(x float64) float64 {
	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	h.floatSlots[m.id] = x
	h.await()
	min := math.Inf(1)
	for _, v := range h.floatSlots {
		if v < min {
			min = v
		}
	}
	// Second barrier: no domain may redeposit into the slots before every
	// domain has read this round's result.
	h.await()
	return min
}

// ExchangeSpikes deposits the local spikes and returns the concatenation of
// all domains' spikes in domain order. Blocking collective.
func (m *Mesh) ExchangeSpikes(local []sim.Spike) []sim.Spike {
	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	h.spikeSlots[m.id] = local
	h.await()
	var out []sim.Spike
	for _, slot := range h.spikeSlots {
		out = append(out, slot...)
	}
	h.await()
	return out
}

// MakeOffsetMap gathers every domain's count and returns the prefix-sum
// partition of length Size()+1. Blocking collective.
func (m *Mesh) MakeOffsetMap(localCount int) []int {
	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	h.countSlots[m.id] = localCount
	h.await()
	offsets := make([]int, h.size+1)
	for i, c := range h.countSlots {
		offsets[i+1] = offsets[i] + c
	}
	h.await()
	return offsets
}
