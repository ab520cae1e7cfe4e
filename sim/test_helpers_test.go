package sim_test

import (
	"math"
	"sync"

	"github.com/spikesim/spikesim/sim"
)

// stubCell is a scripted LoweredCell for driver and communicator tests. It
// emits spikes at preset times, records every enqueue and advance it sees,
// and never integrates anything.
type stubCell struct {
	numSources int
	numTargets int
	numProbes  int

	sourceBase sim.GID
	targetBase sim.GID

	// spikeTimes is consumed in order: a spike is emitted for every entry
	// inside the advanced interval (now, tEnd].
	spikeTimes []float64

	now      float64
	spikes   []sim.Spike
	enqueued [][]sim.Event // one entry per EnqueueEvents call
	advances [][2]float64  // (tEnd, dt) per Advance call
	samplers []sim.Sampler
}

func newStubCell() *stubCell {
	return &stubCell{numSources: 1, numTargets: 1, numProbes: 1}
}

func (c *stubCell) NumSources() int            { return c.numSources }
func (c *stubCell) NumTargets() int            { return c.numTargets }
func (c *stubCell) ProbeRange() (int, int)     { return 0, c.numProbes }
func (c *stubCell) SetSourceGIDs(base sim.GID) { c.sourceBase = base }
func (c *stubCell) SetTargetGIDs(base sim.GID) { c.targetBase = base }
func (c *stubCell) AddSampler(s sim.Sampler)   { c.samplers = append(c.samplers, s) }

func (c *stubCell) EnqueueEvents(events []sim.Event) {
	cp := make([]sim.Event, len(events))
	copy(cp, events)
	c.enqueued = append(c.enqueued, cp)
}

func (c *stubCell) Advance(tEnd, dt float64) {
	c.advances = append(c.advances, [2]float64{tEnd, dt})
	for _, st := range c.spikeTimes {
		if st > c.now && st <= tEnd {
			c.spikes = append(c.spikes, sim.Spike{Source: c.sourceBase, Time: st})
		}
	}
	c.now = tEnd
}

func (c *stubCell) Spikes() []sim.Spike { return c.spikes }
func (c *stubCell) ClearSpikes()        { c.spikes = c.spikes[:0] }
func (c *stubCell) Time() float64       { return c.now }

// runDomains drives fn on n goroutines, one per simulated domain, and waits
// for all of them. fn must keep the domains' collective calls in lock-step.
func runDomains(n int, fn func(id int)) {
	var wg sync.WaitGroup
	for id := 0; id < n; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			fn(id)
		}(id)
	}
	wg.Wait()
}

// serialMinDelay is the reference min-delay computation the distributed
// reduction is checked against.
func serialMinDelay(conns [][]sim.Connection) float64 {
	min := math.Inf(1)
	for _, domain := range conns {
		for _, c := range domain {
			if c.Delay < min {
				min = c.Delay
			}
		}
	}
	return min
}
