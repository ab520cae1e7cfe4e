// Tracks run-wide statistics for final reporting.

package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metrics aggregates statistics about the simulation for final reporting.
// Written by the model driver; read only after Run has returned.
type Metrics struct {
	RunID         string  // unique identifier for this run
	NumCells      int     // cell groups owned by this domain
	NumEpochs     int     // epochs executed by the main loop
	NumSpikes     int     // spikes exchanged globally (all domains)
	SimulatedTime float64 // simulated milliseconds covered by the run

	WallTime time.Duration // wall-clock duration, set by the caller
}

// NewMetrics creates a Metrics tagged with a fresh run id.
func NewMetrics() *Metrics {
	return &Metrics{RunID: uuid.NewString()}
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Run ID            : %s\n", m.RunID)
	fmt.Printf("Local cell groups : %d\n", m.NumCells)
	fmt.Printf("Epochs            : %d\n", m.NumEpochs)
	fmt.Printf("Global spikes     : %d\n", m.NumSpikes)
	fmt.Printf("Simulated time    : %.3f ms\n", m.SimulatedTime)
	if m.WallTime > 0 {
		fmt.Printf("Wall time         : %s\n", m.WallTime)
	}
}
