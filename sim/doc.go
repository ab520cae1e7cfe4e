// Package sim provides the core distributed-memory simulation engine for spikesim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - types.go: the wire-level entities (GID, Member, Connection, Spike, Event)
//   - communicator.go: the per-epoch spike-exchange protocol across domains
//   - model.go: the epoch loop, parallel group advance, and two-phase gid setup
//
// # Architecture
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/domain/: domain policies (serial, in-process mesh, TCP transport)
//   - sim/cell/: cell descriptions and the leaky integrate-and-fire engine
//   - sim/network/: topology construction and probe placement
//   - sim/trace/: probe trace storage and JSON dumps
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Policy: collective operations over all simulation domains (min-reduce,
//     all-to-all spike exchange, offset maps for globally unique ids)
//   - LoweredCell: the numerical engine integrating a single cell's state
//
// # Time model
//
// Simulated time advances in epochs no longer than the global minimum
// connection delay. Within an epoch every local cell group integrates
// independently on its own goroutine; a spike generated inside an epoch can
// therefore never deliver an event before the following epoch begins. The
// single collective Exchange at the end of each epoch resolves all domains'
// spikes into per-group delivery queues for the next epoch.
package sim
