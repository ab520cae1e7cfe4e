// model.go
//
// The model driver orchestrates the global simulation loop: it bounds epoch
// length by the network min-delay, fans out the per-group advance across
// goroutines, and triggers the communicator's collective exchange.

package sim

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/spikesim/spikesim/sim/trace"
)

// Model owns this domain's cell groups, the communicator, and the probe trace
// store. Setup is a strict two-phase protocol:
//
//  1. InitCommunicator gathers per-group source/target counts (serial, local)
//     and builds the communicator skeleton, claiming this domain's gid range.
//  2. The caller adds all connections and calls Construct on the communicator.
//  3. UpdateGIDs runs the offset-map collectives that translate the local
//     counts into globally unique source/target id ranges.
//
// The split exists because global id assignment needs local counts before a
// distributed offset collective can run; the phases must not be reordered.
type Model struct {
	policy Policy
	comm   *Communicator
	groups []*CellGroup

	// Local prefix sums of per-group source/target counts, computed by
	// InitCommunicator and consumed by UpdateGIDs.
	sourceMap []int
	targetMap []int

	traces  *trace.Store
	metrics *Metrics
}

// NewModel creates a model over this domain's cell groups.
func NewModel(policy Policy, groups []*CellGroup) *Model {
	m := &Model{
		policy:  policy,
		groups:  groups,
		traces:  trace.NewStore(),
		metrics: NewMetrics(),
	}
	m.metrics.NumCells = len(groups)
	return m
}

// NumGroups returns the number of cell groups owned by this domain.
func (m *Model) NumGroups() int {
	return len(m.groups)
}

// Group returns the local group with the given index.
func (m *Model) Group(lid int) *CellGroup {
	return m.groups[lid]
}

// Communicator returns the communicator built by InitCommunicator.
// Nil before setup phase 1.
func (m *Model) Communicator() *Communicator {
	return m.comm
}

// Metrics returns the run statistics. Read only after Run has returned.
func (m *Model) Metrics() *Metrics {
	return m.metrics
}

// InitCommunicator runs setup phase 1: per-group source and synapse counts
// are gathered serially, prefix sums produce each group's local offsets, and
// the communicator skeleton is created from the group count. Collective.
func (m *Model) InitCommunicator() {
	if m.comm != nil {
		panic("Model.InitCommunicator: called more than once")
	}

	n := len(m.groups)
	m.sourceMap = make([]int, n+1)
	m.targetMap = make([]int, n+1)
	for i, g := range m.groups {
		m.sourceMap[i+1] = m.sourceMap[i] + g.NumSources()
		m.targetMap[i+1] = m.targetMap[i] + g.NumTargets()
	}

	m.comm = NewCommunicator(m.policy, n)
}

// UpdateGIDs runs setup phase 3: a further collective learns each domain's
// source and target offsets among all domains, producing every group's final
// globally unique id ranges. Must be called after the communicator has been
// constructed.
func (m *Model) UpdateGIDs() {
	if m.comm == nil {
		panic("Model.UpdateGIDs: InitCommunicator has not run")
	}

	n := len(m.groups)
	globalSourceMap := m.policy.MakeOffsetMap(m.sourceMap[n])
	globalTargetMap := m.policy.MakeOffsetMap(m.targetMap[n])
	id := m.policy.ID()
	for i, g := range m.groups {
		g.SetSourceGIDs(GID(globalSourceMap[id] + m.sourceMap[i]))
		g.SetTargetGIDs(GID(globalTargetMap[id] + m.targetMap[i]))
	}
	logrus.Debugf("model: domain %d sources [%d, %d), targets [%d, %d)",
		id, globalSourceMap[id], globalSourceMap[id]+m.sourceMap[n],
		globalTargetMap[id], globalTargetMap[id]+m.targetMap[n])
}

// Run executes the main loop until simulated time reaches tfinal.
//
// Per epoch: every local group, on its own goroutine, enqueues the events the
// previous exchange prepared for it, advances to the epoch end, and deposits
// its spikes in the communicator's per-group slot. After the implicit join, a
// single collective Exchange resolves this epoch's spikes into next epoch's
// queues. Epoch length never exceeds the global min-delay, so a spike
// generated inside an epoch cannot deliver an event before the next epoch.
func (m *Model) Run(tfinal, dt float64) {
	if m.comm == nil || !m.comm.constructed {
		panic("Model.Run: communicator has not been constructed")
	}
	if dt <= 0 {
		panic("Model.Run: dt must be > 0")
	}

	t := 0.0
	for t < tfinal {
		delta := math.Min(m.comm.MinDelay(), tfinal-t)
		tEnd := math.Min(t+delta, tfinal)

		var wg sync.WaitGroup
		for lid, g := range m.groups {
			wg.Add(1)
			go func(lid int, g *CellGroup) {
				defer wg.Done()
				g.EnqueueEvents(m.comm.Queue(lid))
				g.Advance(tEnd, dt)
				m.comm.AddSpikes(lid, g.Spikes())
				g.ClearSpikes()
			}(lid, g)
		}
		wg.Wait()

		m.comm.Exchange()
		t += delta
		m.metrics.NumEpochs++
		logrus.Debugf("model: domain %d finished epoch %d at t=%.3f ms",
			m.policy.ID(), m.metrics.NumEpochs, t)
	}

	m.metrics.SimulatedTime = math.Min(t, tfinal)
	m.metrics.NumSpikes = m.comm.NumSpikes()
}

// MakeSimpleSampler returns a sampler bound to a fresh slot in the model's
// trace store. The sampler records one (time, value) pair per call and
// requests the next sample one interval later; it carries only the slot index
// and its own cadence state, never a reference into shared mutable storage.
func (m *Model) MakeSimpleSampler(probeID Member, name, units string, sampleDT float64) Sampler {
	slot := m.traces.AddTrace(name, units, int(probeID.GID))
	next := 0.0
	return Sampler{
		ProbeID: probeID,
		Sample: func(t, v float64) (float64, bool) {
			m.traces.Append(slot, t, v)
			next += sampleDT
			return next, true
		},
	}
}

// Traces returns the accumulated probe traces.
// Do not call while Run is executing: trace slots are written by the parallel
// group tasks and are safe to read only after the loop has returned.
func (m *Model) Traces() *trace.Store {
	return m.traces
}

// DumpTraces writes one JSON file per probe trace into dir.
// Do not call while Run is executing.
func (m *Model) DumpTraces(dir string) error {
	return m.traces.Dump(dir)
}

// ResetTraces discards all accumulated samples.
// Do not call while Run is executing.
func (m *Model) ResetTraces() {
	m.traces.Reset()
}
