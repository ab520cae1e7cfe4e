package sim

import (
	"fmt"
	"hash/fnv"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration MUST
// produce bit-for-bit identical topology and seeding.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemNetwork is the RNG subsystem for topology generation that is
	// not tied to a single cell (e.g. global shuffles).
	SubsystemNetwork = "network"
)

// SubsystemCell returns the subsystem name for the cell with the given gid.
// Seeding connection generation per target gid keeps the topology identical
// regardless of how cells are distributed across domains.
func SubsystemCell(gid GID) string {
	return fmt.Sprintf("cell_%d", gid)
}

// Derive returns a deterministic seed for the named subsystem:
// masterSeed XOR fnv1a64(subsystemName). The same (key, name) pair always
// yields the same seed; distinct subsystems get isolated streams.
func (k SimulationKey) Derive(subsystem string) uint64 {
	return uint64(int64(k) ^ fnv1a64(subsystem))
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
