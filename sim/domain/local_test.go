package domain

import (
	"testing"

	"github.com/spikesim/spikesim/sim"
)

func TestLocal_Collectives(t *testing.T) {
	p := NewLocal()

	if p.ID() != 0 || p.Size() != 1 {
		t.Errorf("Local is (%d of %d), want (0 of 1)", p.ID(), p.Size())
	}
	if got := p.MinReduce(17.5); got != 17.5 {
		t.Errorf("MinReduce(17.5) = %v, want identity", got)
	}
	if got := p.MakeOffsetMap(5); len(got) != 2 || got[0] != 0 || got[1] != 5 {
		t.Errorf("MakeOffsetMap(5) = %v, want [0 5]", got)
	}
}

func TestLocal_ExchangeSpikes_CopiesInput(t *testing.T) {
	// GIVEN a local spike buffer
	p := NewLocal()
	local := []sim.Spike{{Source: 3, Time: 1.5}, {Source: 0, Time: 2.0}}

	// WHEN it is exchanged and the input is then mutated
	global := p.ExchangeSpikes(local)
	local[0].Time = 99

	// THEN the global view is unaffected: the caller reuses its buffer
	// across epochs
	if global[0].Time != 1.5 || global[1] != local[1] {
		t.Errorf("global view aliases the caller's buffer: %v", global)
	}
}
