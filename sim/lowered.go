// lowered.go
//
// Bridge types for the external numerical engine. The sim package never
// integrates biophysical state itself; it drives a LoweredCell through epochs
// and collects its outputs.

package sim

// SampleFunc observes one (time, value) pair at a probe and returns the next
// requested sample time. ok=false terminates further sampling for the probe.
type SampleFunc func(t, v float64) (next float64, ok bool)

// Sampler binds a SampleFunc to the probe it observes. Samplers returned by
// Model.MakeSimpleSampler capture only an index into the model's pre-sized
// trace store, never a raw reference into shared mutable state.
type Sampler struct {
	ProbeID Member
	Sample  SampleFunc
}

// LoweredCell is the contract the numerical engine fulfils for one simulated
// cell. A LoweredCell is exclusively owned by its CellGroup: exactly one task
// mutates it at a time.
type LoweredCell interface {
	// NumSources and NumTargets report how many spike sources and synapse
	// targets the cell exposes, used for the gid-assignment prefix sums.
	NumSources() int
	NumTargets() int

	// ProbeRange returns the half-open local index range of the cell's probes.
	ProbeRange() (first, last int)

	// SetSourceGIDs and SetTargetGIDs translate the cell's locally-numbered
	// sources and targets into globally unique ids. One-time, setup-only.
	SetSourceGIDs(base GID)
	SetTargetGIDs(base GID)

	// EnqueueEvents merges scheduled events into the cell's pending-event
	// structure. Events must be delivered at their scheduled times relative
	// to the integration performed by Advance.
	EnqueueEvents(events []Event)

	// Advance integrates the cell from its current time to tEnd using base
	// step dt, delivering pending events and invoking registered samplers as
	// their requested sample times are reached.
	Advance(tEnd, dt float64)

	// Spikes returns the spikes generated since the last ClearSpikes.
	Spikes() []Spike
	// ClearSpikes resets the generated-spike set.
	ClearSpikes()

	// AddSampler registers a probe-driven callback.
	AddSampler(s Sampler)

	// Time returns the cell's current simulated time.
	Time() float64
}
