// types.go
//
// Wire-level entities shared by the communicator, cell groups, and domain
// policies: global cell ids, member addresses, connections, spikes, and
// delivery events.

package sim

import "fmt"

// GID identifies a cell group uniquely across all simulation domains.
// Domains own contiguous half-open gid ranges assigned at setup.
type GID int

// Member addresses a specific probe, spike source, or synapse target
// belonging to a cell: the owning cell's gid plus a local index.
type Member struct {
	GID   GID
	Index int
}

func (m Member) String() string {
	return fmt.Sprintf("{%d:%d}", m.GID, m.Index)
}

// Spike records a threshold crossing on a spike source. Spikes are transient:
// produced by a cell group during Advance, consumed once by the exchange step
// that follows, then discarded.
type Spike struct {
	Source GID
	Time   float64
}

// Event is a scheduled synaptic delivery, derived by resolving a spike
// against the connection set at exchange time:
//
//	Time = spike time + connection delay
type Event struct {
	Target Member
	Weight float64
	Time   float64
}

// Connection is a directed, weighted, delayed link from a spike source to a
// synapse target. Connections are immutable once the communicator has been
// constructed.
type Connection struct {
	Source GID
	Target Member
	Weight float64
	Delay  float64
}

func (c Connection) String() string {
	return fmt.Sprintf("con %d -> %v : weight %f, delay %f", c.Source, c.Target, c.Weight, c.Delay)
}
