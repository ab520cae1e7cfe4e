// Package trace provides probe trace storage and serialization for spikesim.
// This package has no dependencies on sim/ — it stores pure data types.
//
// Slots are registered before the simulation starts and each sampler appends
// only to its own slot, so the parallel group tasks never contend. Reading or
// resetting the store while the simulation loop is running is unsafe; drain
// it only after the loop has returned.
package trace

import "fmt"

// Trace is one probe's recording: identity plus an ordered time series.
// Write-only during simulation, read-only afterwards.
type Trace struct {
	Name  string
	Units string
	ID    int // owning cell gid
	Times []float64
	Vals  []float64
}

// Store holds the traces accumulated by the samplers of one model.
type Store struct {
	traces []*Trace
}

// NewStore creates an empty trace store.
func NewStore() *Store {
	return &Store{}
}

// AddTrace registers a new trace slot and returns its index. Must not be
// called while the simulation loop is running.
func (s *Store) AddTrace(name, units string, id int) int {
	s.traces = append(s.traces, &Trace{Name: name, Units: units, ID: id})
	return len(s.traces) - 1
}

// Append records one sample in the given slot. Each slot is owned by exactly
// one sampler, so concurrent appends to distinct slots are safe.
func (s *Store) Append(slot int, t, v float64) {
	tr := s.traces[slot]
	tr.Times = append(tr.Times, t)
	tr.Vals = append(tr.Vals, v)
}

// Len returns the number of registered trace slots.
func (s *Store) Len() int {
	return len(s.traces)
}

// Trace returns the trace in the given slot.
func (s *Store) Trace(slot int) *Trace {
	if slot < 0 || slot >= len(s.traces) {
		panic(fmt.Sprintf("trace.Store: no slot %d", slot))
	}
	return s.traces[slot]
}

// Traces returns all registered traces in registration order.
func (s *Store) Traces() []*Trace {
	return s.traces
}

// Reset drops all samples but keeps the registered slots, so samplers holding
// slot indices stay valid. Do not call during simulation.
func (s *Store) Reset() {
	for _, tr := range s.traces {
		tr.Times = nil
		tr.Vals = nil
	}
}
