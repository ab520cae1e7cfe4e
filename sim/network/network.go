// Package network builds the simulated network: it lowers a prototype cell
// into one group per locally owned gid, wires the connection set (fully
// connected or random fixed fan-in), assigns global ids, attaches probes, and
// seeds initial activity.
package network

import (
	"fmt"

	"github.com/sirupsen/logrus"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/spikesim/spikesim/sim"
	"github.com/spikesim/spikesim/sim/cell"
)

// Synapse parameters shared by every connection.
const (
	// synapseDelay is the base connection delay in ms; per-connection jitter
	// is added on top, so it is also the global minimum delay.
	synapseDelay = 20.0
	// weightPerCell is the summed synaptic weight terminating on one cell.
	weightPerCell = 0.3
	// delayJitterRate parameterizes the exponential delay jitter.
	delayJitterRate = 0.75
)

// Probed gids: soma and dendrite on the first few cells, when they are local.
var monitorGIDs = []sim.GID{0, 1, 2}

// Validate checks the run configuration, returning the first violation.
func Validate(cfg sim.RunConfig) error {
	switch {
	case cfg.Cells <= 0:
		return fmt.Errorf("cell count must be > 0, got %d", cfg.Cells)
	case cfg.SynapsesPerCell <= 0:
		return fmt.Errorf("synapses per cell must be > 0, got %d", cfg.SynapsesPerCell)
	case cfg.AllToAll && cfg.SynapsesPerCell > cfg.Cells-1:
		return fmt.Errorf("fully connected network of %d cells supports at most %d synapses per cell",
			cfg.Cells, cfg.Cells-1)
	case cfg.Compartments <= 0:
		return fmt.Errorf("compartments per segment must be > 0, got %d", cfg.Compartments)
	case cfg.TFinal < 0:
		return fmt.Errorf("final time must be >= 0, got %f", cfg.TFinal)
	case cfg.DT <= 0:
		return fmt.Errorf("dt must be > 0, got %f", cfg.DT)
	case cfg.SampleDT <= 0:
		return fmt.Errorf("sample interval must be > 0, got %f", cfg.SampleDT)
	}
	return nil
}

// Build constructs this domain's share of the network and runs the full setup
// protocol: group creation, InitCommunicator, connection wiring, Construct,
// UpdateGIDs, and probe placement. Collective: every domain must call Build
// with an identical configuration.
func Build(cfg sim.RunConfig, policy sim.Policy) (*sim.Model, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	proto := MakeCell(cfg.Compartments, cfg.SynapsesPerCell, cfg.SynType)

	// Domains own contiguous gid ranges; cells that don't divide evenly go to
	// the lowest-ranked domains.
	ncellLocal := cfg.Cells / policy.Size()
	if policy.ID() < cfg.Cells%policy.Size() {
		ncellLocal++
	}

	groups := make([]*sim.CellGroup, ncellLocal)
	for i := range groups {
		groups[i] = sim.NewCellGroup(cell.NewLIF(proto))
	}

	m := sim.NewModel(policy, groups)
	m.InitCommunicator()
	comm := m.Communicator()

	buildConnections(cfg, comm, ncellLocal)
	comm.Construct()
	m.UpdateGIDs()
	attachProbes(cfg, m)

	logrus.Infof("network: domain %d built %d of %d cells, %d local connections",
		policy.ID(), ncellLocal, cfg.Cells, len(comm.Connections()))
	return m, nil
}

// buildConnections wires the synapses terminating on locally owned cells.
// Each target cell's draw stream is seeded by its gid, so the topology is
// identical no matter how cells are distributed across domains.
func buildConnections(cfg sim.RunConfig, comm *sim.Communicator, ncellLocal int) {
	key := sim.NewSimulationKey(cfg.Seed)
	weight := weightPerCell / float64(cfg.SynapsesPerCell)

	for lid := 0; lid < ncellLocal; lid++ {
		gid := comm.GroupGIDFromLID(lid)
		src := xrand.NewSource(key.Derive(sim.SubsystemCell(gid)))
		rng := xrand.New(src)
		jitter := distuv.Exponential{Rate: delayJitterRate, Src: src}

		added, i := 0, 0
		for added < cfg.SynapsesPerCell {
			var source sim.GID
			if cfg.AllToAll {
				source = sim.GID(i)
			} else {
				source = sim.GID(rng.Intn(cfg.Cells))
			}
			i++
			if source == gid {
				continue
			}
			comm.AddConnection(sim.Connection{
				Source: source,
				Target: sim.Member{GID: gid, Index: added},
				Weight: weight,
				Delay:  synapseDelay + jitter.Rand(),
			})
			added++
		}
	}
}

// attachProbes places simple samplers on the monitored cells that this domain
// owns: somatic voltage, dendritic voltage, and dendritic synaptic current.
func attachProbes(cfg sim.RunConfig, m *sim.Model) {
	comm := m.Communicator()
	for _, gid := range monitorGIDs {
		if int(gid) >= cfg.Cells || !comm.IsLocalGroup(gid) {
			continue
		}
		lid := comm.GroupLID(gid)
		g := m.Group(lid)
		first, _ := g.ProbeRange()

		soma := sim.Member{GID: gid, Index: first}
		dend := sim.Member{GID: gid, Index: first + 1}
		dendCurrent := sim.Member{GID: gid, Index: first + 2}

		g.AddSampler(m.MakeSimpleSampler(soma, "vsoma", "mV", cfg.SampleDT))
		g.AddSampler(m.MakeSimpleSampler(dend, "vdend", "mV", cfg.SampleDT))
		g.AddSampler(m.MakeSimpleSampler(dendCurrent, "idend", "mA/cm²", cfg.SampleDT))
	}
}

// SeedSpikes injects startup activity: one spike at t=0 from every locally
// owned gid divisible by 20. Must run after Build and before the main loop.
func SeedSpikes(m *sim.Model) {
	comm := m.Communicator()
	id := comm.DomainID()
	first := comm.GroupGIDFirst(id)
	if first%20 != 0 {
		first += 20 - first%20
	}
	last := comm.GroupGIDFirst(id + 1)
	for gid := first; gid < last; gid += 20 {
		comm.AddSpike(sim.Spike{Source: gid, Time: 0})
	}
}

// MakeCell builds the prototype cell description: an HH soma, three passive
// dendritic cables, a somatic spike detector, synapses distributed at random
// positions over the terminal dendrites in round-robin, and three probes
// (somatic voltage, dendritic voltage, dendritic current).
func MakeCell(compartmentsPerSegment, numSynapses int, synType string) *cell.Description {
	d := cell.NewDescription()

	soma := d.AddSoma(12.6157 / 2)
	soma.AddMechanism("hh")

	dendrites := []*cell.Segment{
		d.AddCable(0, cell.KindDendrite, 0.5, 0.5, 200),
		d.AddCable(1, cell.KindDendrite, 0.5, 0.25, 100),
		d.AddCable(1, cell.KindDendrite, 0.5, 0.25, 100),
	}
	for _, dend := range dendrites {
		dend.AddMechanism("pas")
		dend.SetCompartments(compartmentsPerSegment)
		dend.AddMechanism("membrane").Set("r_L", 100)
	}

	d.AddDetector(cell.Location{Segment: 0, Pos: 0}, 20)

	// Synapse placement is part of the prototype, not the per-cell topology,
	// so it uses a fixed stream.
	rng := xrand.New(xrand.NewSource(0))
	for i := 0; i < numSynapses; i++ {
		d.AddSynapse(cell.Location{Segment: 2 + i%2, Pos: rng.Float64()}, synType)
	}

	d.AddProbe(cell.Location{Segment: 0, Pos: 0}, cell.ProbeMembraneVoltage)
	d.AddProbe(cell.Location{Segment: 1, Pos: 0.5}, cell.ProbeMembraneVoltage)
	d.AddProbe(cell.Location{Segment: 1, Pos: 0.5}, cell.ProbeMembraneCurrent)
	return d
}
