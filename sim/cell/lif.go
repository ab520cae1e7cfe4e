// lif.go
//
// A two-compartment leaky integrate-and-fire engine implementing
// sim.LoweredCell. Synaptic input lands on the dendritic compartment and
// couples into the soma; a threshold detector on the soma emits spikes.

package cell

import (
	"fmt"
	"math"
	"sort"

	"github.com/spikesim/spikesim/sim"
)

// Integration constants, all in ms / mV. The description carries morphology
// and mechanisms; this engine approximates them with fixed two-compartment
// dynamics.
const (
	restPotential    = -65.0 // mV, leak reversal and reset value
	somaTau          = 10.0  // ms, soma membrane time constant
	dendTau          = 5.0   // ms, dendrite membrane time constant
	synTau           = 2.0   // ms, synaptic current decay
	couplingGain     = 0.4   // soma-dendrite coupling
	synGain          = 80.0  // mV of drive per unit synaptic weight
	refractoryTime   = 2.0   // ms
	defaultThreshold = 20.0  // mV above rest, when the description has no detector
)

type samplerState struct {
	slot   int // probe index within the cell
	sample sim.SampleFunc
	next   float64
	done   bool
}

// LIF is a lowered cell advancing leaky integrate-and-fire dynamics.
// Exclusively owned by its cell group; never shared across tasks.
type LIF struct {
	numSynapses int
	probes      []Probe
	detectors   []Detector
	threshold   float64 // absolute mV

	sourceBase sim.GID
	targetBase sim.GID

	now             float64
	vSoma           float64
	vDend           float64
	synCurrent      float64
	refractoryUntil float64

	pending  []sim.Event // sorted by delivery time
	spikes   []sim.Spike
	samplers []samplerState
}

// NewLIF lowers a cell description into an integrate-and-fire instance.
// Panics if the description has no soma.
func NewLIF(desc *Description) *LIF {
	if !desc.HasSoma() {
		panic("cell: description has no soma")
	}
	c := &LIF{
		numSynapses: len(desc.Synapses()),
		probes:      desc.Probes(),
		detectors:   desc.Detectors(),
		vSoma:       restPotential,
		vDend:       restPotential,
		threshold:   restPotential + defaultThreshold,
	}
	if len(c.detectors) > 0 {
		c.threshold = restPotential + c.detectors[0].Threshold
	}
	return c
}

// NumSources returns the number of spike detectors.
func (c *LIF) NumSources() int { return len(c.detectors) }

// NumTargets returns the number of synapse targets.
func (c *LIF) NumTargets() int { return c.numSynapses }

// ProbeRange returns the half-open local index range of the cell's probes.
func (c *LIF) ProbeRange() (first, last int) { return 0, len(c.probes) }

// SetSourceGIDs assigns the globally unique id of the cell's first spike
// source. One-time, setup-only.
func (c *LIF) SetSourceGIDs(base sim.GID) { c.sourceBase = base }

// SetTargetGIDs assigns the globally unique id of the cell's first synapse
// target. One-time, setup-only.
func (c *LIF) SetTargetGIDs(base sim.GID) { c.targetBase = base }

// SourceGIDBase returns the global id of the cell's first spike source.
func (c *LIF) SourceGIDBase() sim.GID { return c.sourceBase }

// TargetGIDBase returns the global id of the cell's first synapse target.
func (c *LIF) TargetGIDBase() sim.GID { return c.targetBase }

// EnqueueEvents merges scheduled events into the pending queue, keeping it
// ordered by delivery time.
func (c *LIF) EnqueueEvents(events []sim.Event) {
	for _, ev := range events {
		if ev.Target.Index < 0 || ev.Target.Index >= c.numSynapses {
			panic(fmt.Sprintf("cell: event targets synapse %d of %d", ev.Target.Index, c.numSynapses))
		}
	}
	c.pending = append(c.pending, events...)
	sort.SliceStable(c.pending, func(i, j int) bool {
		return c.pending[i].Time < c.pending[j].Time
	})
}

// Advance integrates from the cell's current time to tEnd with base step dt.
// Pending events are applied at the step containing their delivery time;
// samplers fire whenever their requested time has been reached.
func (c *LIF) Advance(tEnd, dt float64) {
	const eps = 1e-9
	for c.now < tEnd-eps {
		c.runSamplers()
		c.deliverDue()

		h := math.Min(dt, tEnd-c.now)
		c.step(h)
		c.now += h

		if c.vSoma >= c.threshold && c.now >= c.refractoryUntil {
			c.spikes = append(c.spikes, sim.Spike{Source: c.sourceBase, Time: c.now})
			c.vSoma = restPotential
			c.refractoryUntil = c.now + refractoryTime
		}
	}
	c.runSamplers()
}

// step advances the membrane state by h milliseconds with forward Euler.
func (c *LIF) step(h float64) {
	drive := synGain * c.synCurrent
	dvDend := (-(c.vDend - restPotential) + drive + couplingGain*(c.vSoma-c.vDend)) / dendTau
	dvSoma := (-(c.vSoma - restPotential) + couplingGain*(c.vDend-c.vSoma)) / somaTau
	c.vDend += h * dvDend
	if c.now+h >= c.refractoryUntil {
		c.vSoma += h * dvSoma
	}
	c.synCurrent *= math.Exp(-h / synTau)
}

// deliverDue applies every pending event whose delivery time has arrived.
func (c *LIF) deliverDue() {
	const eps = 1e-9
	i := 0
	for ; i < len(c.pending) && c.pending[i].Time <= c.now+eps; i++ {
		c.synCurrent += c.pending[i].Weight
	}
	if i > 0 {
		c.pending = c.pending[i:]
	}
}

// runSamplers fires every registered sampler whose requested time has been
// reached, passing the current time and probe value. A sampler that returns
// ok=false, or fails to advance its requested time, stops sampling.
func (c *LIF) runSamplers() {
	const eps = 1e-9
	for i := range c.samplers {
		st := &c.samplers[i]
		for !st.done && st.next <= c.now+eps {
			next, ok := st.sample(c.now, c.probeValue(st.slot))
			if !ok || next <= st.next {
				st.done = true
				break
			}
			st.next = next
		}
	}
}

// probeValue reads the quantity observed by the probe with the given local
// index.
func (c *LIF) probeValue(probe int) float64 {
	p := c.probes[probe]
	switch p.Kind {
	case ProbeMembraneCurrent:
		return c.synCurrent
	default:
		if p.Loc.Segment == 0 {
			return c.vSoma
		}
		return c.vDend
	}
}

// AddSampler registers a probe-driven callback. The probe is addressed by the
// member's local index; the first sample is requested at time zero.
func (c *LIF) AddSampler(s sim.Sampler) {
	if s.ProbeID.Index < 0 || s.ProbeID.Index >= len(c.probes) {
		panic(fmt.Sprintf("cell: no probe with index %d", s.ProbeID.Index))
	}
	c.samplers = append(c.samplers, samplerState{slot: s.ProbeID.Index, sample: s.Sample})
}

// Spikes returns the spikes generated since the last ClearSpikes.
func (c *LIF) Spikes() []sim.Spike { return c.spikes }

// ClearSpikes resets the generated-spike set.
func (c *LIF) ClearSpikes() { c.spikes = c.spikes[:0] }

// Time returns the cell's current simulated time.
func (c *LIF) Time() float64 { return c.now }

// VSoma exposes the somatic membrane potential for tests.
func (c *LIF) VSoma() float64 { return c.vSoma }
