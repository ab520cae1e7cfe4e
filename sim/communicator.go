// communicator.go
//
// The communicator owns the network topology and runs the per-epoch
// spike-exchange protocol across domains.

package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// Communicator resolves spikes emitted anywhere in the distributed simulation
// into per-group delivery queues on the domains that own the targets.
//
// Lifecycle: create with NewCommunicator, add the full connection set with
// AddConnection, then call Construct exactly once. After Construct the
// connection set is immutable and the per-epoch cycle is
// AddSpikes* -> Exchange -> Queue.
type Communicator struct {
	policy Policy

	numLocalGroups int
	// gidPartition[d] is the first gid owned by domain d; length Size()+1.
	gidPartition []int

	pending     []Connection
	connections []Connection // sorted by source gid after Construct
	constructed bool

	// One accumulation slot per local group. Each group's epoch task appends
	// only to its own slot, so no lock is needed; the slots are concatenated
	// by the sequential Exchange.
	groupSpikes [][]Spike

	queues    [][]Event
	minDelay  float64
	numSpikes int
}

// NewCommunicator creates the communicator skeleton for this domain's local
// groups. Collective: every domain must call it with its own group count, in
// the same relative order as all other collectives.
func NewCommunicator(policy Policy, numLocalGroups int) *Communicator {
	if numLocalGroups < 0 {
		panic("NewCommunicator: numLocalGroups must be >= 0")
	}
	c := &Communicator{
		policy:         policy,
		numLocalGroups: numLocalGroups,
		gidPartition:   policy.MakeOffsetMap(numLocalGroups),
		groupSpikes:    make([][]Spike, numLocalGroups),
		queues:         make([][]Event, numLocalGroups),
		minDelay:       math.Inf(1),
	}
	logrus.Debugf("communicator: domain %d owns gids [%d, %d)",
		policy.ID(), c.gidPartition[policy.ID()], c.gidPartition[policy.ID()+1])
	return c
}

// AddConnection appends a connection terminating on a cell owned by this
// domain. Panics if called after Construct or if the delay is negative.
func (c *Communicator) AddConnection(con Connection) {
	if c.constructed {
		panic("Communicator.AddConnection: connection set already constructed")
	}
	if con.Delay < 0 {
		panic(fmt.Sprintf("Communicator.AddConnection: negative delay %f", con.Delay))
	}
	if !c.IsLocalGroup(con.Target.GID) {
		panic(fmt.Sprintf("Communicator.AddConnection: target %v is not owned by domain %d",
			con.Target, c.policy.ID()))
	}
	c.pending = append(c.pending, con)
}

// Construct finalizes the connection set: sorts connections by source gid for
// range lookup and runs the global min-reduction over all domains' delays.
// Collective. Must be called exactly once after all connections are added.
func (c *Communicator) Construct() {
	if c.constructed {
		panic("Communicator.Construct: called more than once")
	}
	c.connections = c.pending
	c.pending = nil
	sort.SliceStable(c.connections, func(i, j int) bool {
		return c.connections[i].Source < c.connections[j].Source
	})

	localMin := math.Inf(1)
	for _, con := range c.connections {
		if con.Delay < localMin {
			localMin = con.Delay
		}
	}
	c.minDelay = c.policy.MinReduce(localMin)
	c.constructed = true
	logrus.Infof("communicator: domain %d constructed with %d local connections, min delay %v",
		c.policy.ID(), len(c.connections), c.minDelay)
}

// AddSpikes appends a group's spikes to its accumulation slot for the current
// epoch. Called once per cell group per epoch; distinct groups may call
// concurrently because each writes only its own slot.
func (c *Communicator) AddSpikes(groupLID int, spikes []Spike) {
	if groupLID < 0 || groupLID >= c.numLocalGroups {
		panic(fmt.Sprintf("Communicator.AddSpikes: no local group %d", groupLID))
	}
	c.groupSpikes[groupLID] = append(c.groupSpikes[groupLID], spikes...)
}

// AddSpike injects a single spike from a locally owned source, used to seed
// activity before the first epoch. Not safe concurrently with AddSpikes.
func (c *Communicator) AddSpike(s Spike) {
	if !c.IsLocalGroup(s.Source) {
		panic(fmt.Sprintf("Communicator.AddSpike: source gid %d is not owned by domain %d",
			s.Source, c.policy.ID()))
	}
	lid := c.GroupLID(s.Source)
	c.groupSpikes[lid] = append(c.groupSpikes[lid], s)
}

// Exchange gathers every domain's accumulated spikes, resolves each spike
// against the sorted connection set, and replaces every local group's event
// queue with the deliveries for the next epoch. The spike accumulator is
// cleared. Collective: exactly once per epoch, by all domains in lock-step.
func (c *Communicator) Exchange() {
	if !c.constructed {
		panic("Communicator.Exchange: called before Construct")
	}

	var local []Spike
	for lid := range c.groupSpikes {
		local = append(local, c.groupSpikes[lid]...)
		c.groupSpikes[lid] = c.groupSpikes[lid][:0]
	}

	global := c.policy.ExchangeSpikes(local)
	c.numSpikes += len(global)

	queues := make([][]Event, c.numLocalGroups)
	for _, spike := range global {
		first, last := c.connectionRange(spike.Source)
		for _, con := range c.connections[first:last] {
			lid := c.GroupLID(con.Target.GID)
			queues[lid] = append(queues[lid], Event{
				Target: con.Target,
				Weight: con.Weight,
				Time:   spike.Time + con.Delay,
			})
		}
	}
	c.queues = queues
	logrus.Debugf("communicator: domain %d exchanged %d local / %d global spikes",
		c.policy.ID(), len(local), len(global))
}

// connectionRange returns the half-open index range of connections whose
// source is the given gid, via binary search over the sorted connection list.
func (c *Communicator) connectionRange(source GID) (int, int) {
	first := sort.Search(len(c.connections), func(i int) bool {
		return c.connections[i].Source >= source
	})
	last := sort.Search(len(c.connections), func(i int) bool {
		return c.connections[i].Source > source
	})
	return first, last
}

// Queue returns the event queue prepared by the most recent Exchange for the
// given local group.
func (c *Communicator) Queue(groupLID int) []Event {
	if groupLID < 0 || groupLID >= c.numLocalGroups {
		panic(fmt.Sprintf("Communicator.Queue: no local group %d", groupLID))
	}
	return c.queues[groupLID]
}

// MinDelay returns the global minimum connection delay, computed once by
// Construct. With zero connections anywhere it is +Inf, and the model driver
// falls back to a single epoch spanning the whole simulation.
func (c *Communicator) MinDelay() float64 {
	if !c.constructed {
		panic("Communicator.MinDelay: called before Construct")
	}
	return c.minDelay
}

// NumSpikes returns the running count of spikes ever exchanged, summed across
// all domains.
func (c *Communicator) NumSpikes() int {
	return c.numSpikes
}

// Connections returns the finalized connection set, sorted by source gid.
func (c *Communicator) Connections() []Connection {
	return c.connections
}

// DomainID returns this domain's rank.
func (c *Communicator) DomainID() int {
	return c.policy.ID()
}

// NumDomains returns the total domain count.
func (c *Communicator) NumDomains() int {
	return c.policy.Size()
}

// NumLocalGroups returns the number of cell groups owned by this domain.
func (c *Communicator) NumLocalGroups() int {
	return c.numLocalGroups
}

// GroupGIDFirst returns the first gid owned by the given domain. Passing
// Size() returns the total global cell count, so GroupGIDFirst(d) and
// GroupGIDFirst(d+1) bound domain d's gid range.
func (c *Communicator) GroupGIDFirst(domain int) GID {
	return GID(c.gidPartition[domain])
}

// GroupGIDFromLID converts a local group index to its global gid.
func (c *Communicator) GroupGIDFromLID(lid int) GID {
	return GID(c.gidPartition[c.policy.ID()] + lid)
}

// GroupLID converts a locally owned gid to the local group index.
func (c *Communicator) GroupLID(gid GID) int {
	if !c.IsLocalGroup(gid) {
		panic(fmt.Sprintf("Communicator.GroupLID: gid %d is not owned by domain %d", gid, c.policy.ID()))
	}
	return int(gid) - c.gidPartition[c.policy.ID()]
}

// IsLocalGroup reports whether the given gid is owned by this domain.
func (c *Communicator) IsLocalGroup(gid GID) bool {
	id := c.policy.ID()
	return int(gid) >= c.gidPartition[id] && int(gid) < c.gidPartition[id+1]
}
