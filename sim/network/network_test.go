package network

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spikesim/spikesim/sim"
	"github.com/spikesim/spikesim/sim/domain"
)

func testConfig() sim.RunConfig {
	return sim.RunConfig{
		Cells:           40,
		SynapsesPerCell: 5,
		Compartments:    4,
		SynType:         "expsyn",
		TFinal:          100,
		DT:              0.025,
		SampleDT:        0.1,
		Seed:            42,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *sim.RunConfig)
		ok     bool
	}{
		{"defaults", func(cfg *sim.RunConfig) {}, true},
		{"zero cells", func(cfg *sim.RunConfig) { cfg.Cells = 0 }, false},
		{"zero synapses", func(cfg *sim.RunConfig) { cfg.SynapsesPerCell = 0 }, false},
		{"all-to-all fan-in too large", func(cfg *sim.RunConfig) { cfg.AllToAll = true; cfg.SynapsesPerCell = 40 }, false},
		{"all-to-all fan-in at limit", func(cfg *sim.RunConfig) { cfg.AllToAll = true; cfg.SynapsesPerCell = 39 }, true},
		{"zero compartments", func(cfg *sim.RunConfig) { cfg.Compartments = 0 }, false},
		{"negative tfinal", func(cfg *sim.RunConfig) { cfg.TFinal = -1 }, false},
		{"zero tfinal", func(cfg *sim.RunConfig) { cfg.TFinal = 0 }, true},
		{"zero dt", func(cfg *sim.RunConfig) { cfg.DT = 0 }, false},
		{"zero sample interval", func(cfg *sim.RunConfig) { cfg.SampleDT = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMakeCell_Shape(t *testing.T) {
	d := MakeCell(4, 10, "expsyn")

	// Soma plus three dendritic cables.
	assert.Equal(t, 4, d.NumSegments())
	assert.Equal(t, 1+3*4, d.NumCompartments())
	assert.Len(t, d.Detectors(), 1)
	assert.Len(t, d.Synapses(), 10)
	assert.Len(t, d.Probes(), 3)

	// Synapses land round-robin on the two terminal dendrites.
	for i, syn := range d.Synapses() {
		assert.Equal(t, 2+i%2, syn.Loc.Segment, "synapse %d", i)
		assert.Equal(t, "expsyn", syn.Kind)
	}
}

func TestBuild_SingleDomainTopology(t *testing.T) {
	cfg := testConfig()
	m, err := Build(cfg, domain.NewLocal())
	require.NoError(t, err)

	// One group per cell, fixed fan-in per target.
	assert.Equal(t, cfg.Cells, m.NumGroups())
	conns := m.Communicator().Connections()
	require.Len(t, conns, cfg.Cells*cfg.SynapsesPerCell)

	fanIn := make(map[sim.GID]int)
	for _, con := range conns {
		assert.NotEqual(t, con.Target.GID, con.Source, "self connection on gid %d", con.Target.GID)
		assert.GreaterOrEqual(t, con.Delay, synapseDelay)
		fanIn[con.Target.GID]++
	}
	for gid := 0; gid < cfg.Cells; gid++ {
		assert.Equal(t, cfg.SynapsesPerCell, fanIn[sim.GID(gid)], "fan-in of gid %d", gid)
	}

	// The jitter keeps the base delay as the global minimum.
	assert.GreaterOrEqual(t, m.Communicator().MinDelay(), synapseDelay)
}

func TestBuild_AllToAllSources(t *testing.T) {
	cfg := testConfig()
	cfg.Cells = 6
	cfg.AllToAll = true
	cfg.SynapsesPerCell = 5

	m, err := Build(cfg, domain.NewLocal())
	require.NoError(t, err)

	// Every cell receives from every other cell exactly once.
	seen := make(map[sim.GID]map[sim.GID]bool)
	for _, con := range m.Communicator().Connections() {
		if seen[con.Target.GID] == nil {
			seen[con.Target.GID] = make(map[sim.GID]bool)
		}
		assert.False(t, seen[con.Target.GID][con.Source], "duplicate source %d -> %d", con.Source, con.Target.GID)
		seen[con.Target.GID][con.Source] = true
	}
	for gid := sim.GID(0); gid < 6; gid++ {
		assert.Len(t, seen[gid], 5, "sources of gid %d", gid)
		assert.False(t, seen[gid][gid], "gid %d connects to itself", gid)
	}
}

func TestBuild_DeterministicForSeed(t *testing.T) {
	cfg := testConfig()
	a, err := Build(cfg, domain.NewLocal())
	require.NoError(t, err)
	b, err := Build(cfg, domain.NewLocal())
	require.NoError(t, err)
	assert.Equal(t, a.Communicator().Connections(), b.Communicator().Connections())

	cfg.Seed = 43
	c, err := Build(cfg, domain.NewLocal())
	require.NoError(t, err)
	assert.NotEqual(t, a.Communicator().Connections(), c.Communicator().Connections())
}

func TestBuild_TopologyIndependentOfDistribution(t *testing.T) {
	// GIVEN the same configuration built serially and across two domains
	cfg := testConfig()
	serial, err := Build(cfg, domain.NewLocal())
	require.NoError(t, err)

	hub := domain.NewHub(2)
	parts := make([][]sim.Connection, 2)
	var wg sync.WaitGroup
	for id := 0; id < 2; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			m, err := Build(cfg, hub.Domain(id))
			if err != nil {
				t.Errorf("domain %d: %v", id, err)
				return
			}
			parts[id] = m.Communicator().Connections()
		}(id)
	}
	wg.Wait()

	// THEN the union of the domains' connection sets is the serial topology
	var merged []sim.Connection
	merged = append(merged, parts[0]...)
	merged = append(merged, parts[1]...)
	byTarget := func(conns []sim.Connection) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := conns[i], conns[j]
			if a.Target.GID != b.Target.GID {
				return a.Target.GID < b.Target.GID
			}
			return a.Target.Index < b.Target.Index
		}
	}
	sort.SliceStable(merged, byTarget(merged))

	want := append([]sim.Connection(nil), serial.Communicator().Connections()...)
	sort.SliceStable(want, byTarget(want))
	assert.Equal(t, want, merged)
}

func TestSeedSpikes_EveryTwentiethCell(t *testing.T) {
	// GIVEN a built 45-cell network
	cfg := testConfig()
	cfg.Cells = 45
	m, err := Build(cfg, domain.NewLocal())
	require.NoError(t, err)

	// WHEN seed spikes are injected and the first exchange runs
	SeedSpikes(m)
	m.Communicator().Exchange()

	// THEN gids 0, 20 and 40 contributed one spike each
	assert.Equal(t, 3, m.Communicator().NumSpikes())
}

func TestSeedSpikes_RoundsUpOnHigherDomains(t *testing.T) {
	// GIVEN 50 cells split across two domains (gids [0,25) and [25,50))
	cfg := testConfig()
	cfg.Cells = 50
	hub := domain.NewHub(2)
	counts := make([]int, 2)

	var wg sync.WaitGroup
	for id := 0; id < 2; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			m, err := Build(cfg, hub.Domain(id))
			if err != nil {
				t.Errorf("domain %d: %v", id, err)
				return
			}
			SeedSpikes(m)
			m.Communicator().Exchange()
			counts[id] = m.Communicator().NumSpikes()
		}(id)
	}
	wg.Wait()

	// THEN domain 0 seeds gids 0 and 20, domain 1 seeds only gid 40, and both
	// observe the same global count
	assert.Equal(t, []int{3, 3}, counts)
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Cells = 0
	_, err := Build(cfg, domain.NewLocal())
	assert.Error(t, err)
}
