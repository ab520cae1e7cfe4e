package sim_test

import (
	"math"
	"testing"

	"github.com/spikesim/spikesim/sim"
	"github.com/spikesim/spikesim/sim/domain"
)

func TestCommunicator_MinDelay_GlobalMinimumAcrossDomains(t *testing.T) {
	// GIVEN connections distributed over two simulated domains with
	// different local minimum delays
	perDomain := [][]sim.Connection{
		{
			{Source: 1, Target: sim.Member{GID: 0, Index: 0}, Weight: 0.1, Delay: 30},
			{Source: 1, Target: sim.Member{GID: 0, Index: 1}, Weight: 0.1, Delay: 42.5},
		},
		{
			{Source: 0, Target: sim.Member{GID: 1, Index: 0}, Weight: 0.1, Delay: 12.5},
		},
	}
	hub := domain.NewHub(2)
	got := make([]float64, 2)

	// WHEN each domain constructs its communicator with its own connections
	runDomains(2, func(id int) {
		comm := sim.NewCommunicator(hub.Domain(id), 1)
		for _, c := range perDomain[id] {
			comm.AddConnection(c)
		}
		comm.Construct()
		got[id] = comm.MinDelay()
	})

	// THEN every domain sees the minimum over the global connection set
	want := serialMinDelay(perDomain)
	for id, d := range got {
		if d != want {
			t.Errorf("domain %d: MinDelay() = %v, want %v", id, d, want)
		}
	}
}

func TestCommunicator_MinDelay_NoConnections_Sentinel(t *testing.T) {
	// GIVEN a communicator constructed without any connections
	comm := sim.NewCommunicator(domain.NewLocal(), 2)
	comm.Construct()

	// THEN min-delay is the +Inf sentinel
	if !math.IsInf(comm.MinDelay(), 1) {
		t.Errorf("MinDelay() with zero connections = %v, want +Inf", comm.MinDelay())
	}
}

func TestCommunicator_CausalityRoundTrip(t *testing.T) {
	// GIVEN a single domain with two groups and one delayed connection
	comm := sim.NewCommunicator(domain.NewLocal(), 2)
	comm.AddConnection(sim.Connection{
		Source: 0,
		Target: sim.Member{GID: 1, Index: 3},
		Weight: 0.5,
		Delay:  20,
	})
	comm.Construct()

	// WHEN a spike is accumulated but not yet exchanged
	comm.AddSpike(sim.Spike{Source: 0, Time: 5})

	// THEN the target group's queue is still empty
	if len(comm.Queue(1)) != 0 {
		t.Fatalf("event visible before exchange: %v", comm.Queue(1))
	}

	// WHEN the exchange runs
	comm.Exchange()

	// THEN exactly one event with time = spike time + delay is queued for the
	// owning group and nothing is queued elsewhere
	q := comm.Queue(1)
	if len(q) != 1 {
		t.Fatalf("Queue(1) has %d events, want 1", len(q))
	}
	want := sim.Event{Target: sim.Member{GID: 1, Index: 3}, Weight: 0.5, Time: 25}
	if q[0] != want {
		t.Errorf("event = %+v, want %+v", q[0], want)
	}
	if len(comm.Queue(0)) != 0 {
		t.Errorf("Queue(0) has %d events, want 0", len(comm.Queue(0)))
	}

	// WHEN a further exchange runs with no new spikes
	comm.Exchange()

	// THEN the queue has been replaced with an empty one
	if len(comm.Queue(1)) != 0 {
		t.Errorf("event survived a second exchange: %v", comm.Queue(1))
	}
}

func TestCommunicator_Exchange_PartitionsEventsByGroup(t *testing.T) {
	// GIVEN one source fanning out to two local groups
	comm := sim.NewCommunicator(domain.NewLocal(), 2)
	comm.AddConnection(sim.Connection{Source: 1, Target: sim.Member{GID: 0, Index: 0}, Weight: 0.1, Delay: 20})
	comm.AddConnection(sim.Connection{Source: 1, Target: sim.Member{GID: 1, Index: 0}, Weight: 0.2, Delay: 21})
	comm.Construct()

	// WHEN the source spikes
	comm.AddSpike(sim.Spike{Source: 1, Time: 1})
	comm.Exchange()

	// THEN each group's queue holds exactly the event targeting it
	if len(comm.Queue(0)) != 1 || comm.Queue(0)[0].Target.GID != 0 {
		t.Errorf("Queue(0) = %v, want one event for gid 0", comm.Queue(0))
	}
	if len(comm.Queue(1)) != 1 || comm.Queue(1)[0].Target.GID != 1 {
		t.Errorf("Queue(1) = %v, want one event for gid 1", comm.Queue(1))
	}
}

func TestCommunicator_AddConnection_AfterConstruct_Panics(t *testing.T) {
	// GIVEN a constructed communicator
	comm := sim.NewCommunicator(domain.NewLocal(), 1)
	comm.Construct()

	// WHEN a connection is added after construction THEN it panics
	defer func() {
		if recover() == nil {
			t.Error("AddConnection after Construct did not panic")
		}
	}()
	comm.AddConnection(sim.Connection{Source: 0, Target: sim.Member{GID: 0, Index: 0}, Delay: 1})
}

func TestCommunicator_Construct_Twice_Panics(t *testing.T) {
	comm := sim.NewCommunicator(domain.NewLocal(), 1)
	comm.Construct()

	defer func() {
		if recover() == nil {
			t.Error("second Construct did not panic")
		}
	}()
	comm.Construct()
}

func TestCommunicator_NumSpikes_GlobalRunningCount(t *testing.T) {
	// GIVEN two domains, each owning one group with a self-terminating
	// connection set so exchanges are well-defined
	hub := domain.NewHub(2)
	spikesPerRound := []int{2, 3}
	counts := make([][]int, 2)

	runDomains(2, func(id int) {
		comm := sim.NewCommunicator(hub.Domain(id), 1)
		comm.Construct()

		// WHEN spikes are accumulated and exchanged over two epochs
		for round := 0; round < 2; round++ {
			var spikes []sim.Spike
			for i := 0; i < spikesPerRound[id]; i++ {
				spikes = append(spikes, sim.Spike{Source: sim.GID(id), Time: float64(round)})
			}
			comm.AddSpikes(0, spikes)
			comm.Exchange()
			counts[id] = append(counts[id], comm.NumSpikes())
		}
	})

	// THEN the running count is monotone and equals the global sum on both domains
	perRound := spikesPerRound[0] + spikesPerRound[1]
	for id := 0; id < 2; id++ {
		if counts[id][0] != perRound || counts[id][1] != 2*perRound {
			t.Errorf("domain %d: NumSpikes per round = %v, want [%d %d]",
				id, counts[id], perRound, 2*perRound)
		}
		if counts[id][1] < counts[id][0] {
			t.Errorf("domain %d: NumSpikes decreased: %v", id, counts[id])
		}
	}
}

func TestCommunicator_GIDMapping_AcrossDomains(t *testing.T) {
	// GIVEN two domains owning 2 and 3 groups
	hub := domain.NewHub(2)
	groupCounts := []int{2, 3}

	runDomains(2, func(id int) {
		comm := sim.NewCommunicator(hub.Domain(id), groupCounts[id])

		// THEN the gid partition is the prefix sum of group counts
		if comm.GroupGIDFirst(0) != 0 || comm.GroupGIDFirst(1) != 2 || comm.GroupGIDFirst(2) != 5 {
			t.Errorf("domain %d: partition = [%d %d %d], want [0 2 5]",
				id, comm.GroupGIDFirst(0), comm.GroupGIDFirst(1), comm.GroupGIDFirst(2))
		}

		// AND lid/gid round-trips stay within the local range
		for lid := 0; lid < groupCounts[id]; lid++ {
			gid := comm.GroupGIDFromLID(lid)
			if !comm.IsLocalGroup(gid) {
				t.Errorf("domain %d: gid %d not recognized as local", id, gid)
			}
			if comm.GroupLID(gid) != lid {
				t.Errorf("domain %d: GroupLID(%d) = %d, want %d", id, gid, comm.GroupLID(gid), lid)
			}
		}

		// AND the other domain's gids are not local
		other := 1 - id
		if comm.IsLocalGroup(comm.GroupGIDFirst(other)) {
			t.Errorf("domain %d: foreign gid %d reported local", id, comm.GroupGIDFirst(other))
		}
	})
}

func TestCommunicator_Exchange_DeliversAcrossDomains(t *testing.T) {
	// GIVEN two domains where a spike source on domain 0 targets a synapse on
	// domain 1
	hub := domain.NewHub(2)
	queues := make([][]sim.Event, 2)

	runDomains(2, func(id int) {
		comm := sim.NewCommunicator(hub.Domain(id), 1)
		if id == 1 {
			comm.AddConnection(sim.Connection{
				Source: 0,
				Target: sim.Member{GID: 1, Index: 0},
				Weight: 0.25,
				Delay:  20,
			})
		}
		comm.Construct()

		// WHEN the source spikes on domain 0 and both domains exchange
		if id == 0 {
			comm.AddSpike(sim.Spike{Source: 0, Time: 3})
		}
		comm.Exchange()
		queues[id] = comm.Queue(0)
	})

	// THEN the event lands on domain 1 only, at spike time + delay
	if len(queues[0]) != 0 {
		t.Errorf("domain 0 queue = %v, want empty", queues[0])
	}
	want := sim.Event{Target: sim.Member{GID: 1, Index: 0}, Weight: 0.25, Time: 23}
	if len(queues[1]) != 1 || queues[1][0] != want {
		t.Errorf("domain 1 queue = %v, want [%+v]", queues[1], want)
	}
}
