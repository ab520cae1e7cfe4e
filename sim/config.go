package sim

// RunConfig groups the simulation parameters the CLI and the network builder
// consume.
type RunConfig struct {
	Cells           int     // total cell count across all domains (must be > 0)
	SynapsesPerCell int     // fan-in per cell (must be > 0)
	Compartments    int     // compartments per cable segment
	SynType         string  // synapse kind placed on each cell ("expsyn" default)
	AllToAll        bool    // true = fully connected, false = random fixed fan-in
	TFinal          float64 // final simulated time in ms
	DT              float64 // base integration step in ms (must be > 0)
	SampleDT        float64 // probe sampling interval in ms
	Seed            int64   // master seed for topology generation
	TraceDir        string  // directory for per-probe trace dumps ("" = cwd)
}
