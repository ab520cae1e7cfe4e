// cellgroup.go
//
// A cell group is the domain-local, task-owned unit wrapping one lowered-cell
// simulation instance.

package sim

// CellGroup wraps exactly one externally-provided LoweredCell and owns it
// exclusively: within an epoch, one task enqueues, advances, and drains the
// group; no two groups ever share mutable per-cell state. Spikes and ClearSpikes
// must not be called concurrently with Advance on the same group, but are safe
// across distinct groups.
type CellGroup struct {
	cell LoweredCell
}

// NewCellGroup wraps the given lowered cell. The caller hands over ownership.
func NewCellGroup(cell LoweredCell) *CellGroup {
	if cell == nil {
		panic("NewCellGroup: cell must not be nil")
	}
	return &CellGroup{cell: cell}
}

// Cell exposes the wrapped lowered cell for setup-time queries.
func (g *CellGroup) Cell() LoweredCell {
	return g.cell
}

// NumSources returns the number of spike sources on the wrapped cell.
func (g *CellGroup) NumSources() int { return g.cell.NumSources() }

// NumTargets returns the number of synapse targets on the wrapped cell.
func (g *CellGroup) NumTargets() int { return g.cell.NumTargets() }

// ProbeRange returns the half-open local index range of the cell's probes.
func (g *CellGroup) ProbeRange() (first, last int) { return g.cell.ProbeRange() }

// SetSourceGIDs assigns the globally unique id of the group's first spike
// source. One-time, setup-only.
func (g *CellGroup) SetSourceGIDs(base GID) { g.cell.SetSourceGIDs(base) }

// SetTargetGIDs assigns the globally unique id of the group's first synapse
// target. One-time, setup-only.
func (g *CellGroup) SetTargetGIDs(base GID) { g.cell.SetTargetGIDs(base) }

// EnqueueEvents merges a list of scheduled events into the wrapped cell's
// pending-event structure before advancing.
func (g *CellGroup) EnqueueEvents(events []Event) {
	if len(events) == 0 {
		return
	}
	g.cell.EnqueueEvents(events)
}

// Advance integrates the wrapped cell to tEnd with base step dt, delivering
// pending events and driving registered samplers.
func (g *CellGroup) Advance(tEnd, dt float64) {
	g.cell.Advance(tEnd, dt)
}

// Spikes returns the spikes generated since the last ClearSpikes.
func (g *CellGroup) Spikes() []Spike { return g.cell.Spikes() }

// ClearSpikes resets the group's generated-spike set.
func (g *CellGroup) ClearSpikes() { g.cell.ClearSpikes() }

// AddSampler registers a probe-driven callback on the wrapped cell.
func (g *CellGroup) AddSampler(s Sampler) { g.cell.AddSampler(s) }
