package domain

import "github.com/spikesim/spikesim/sim"

// Local is the trivial single-domain policy: every collective involves only
// the calling process and returns immediately. It is the deterministic
// default for unit tests and single-process runs.
type Local struct{}

// NewLocal creates the single-domain policy.
func NewLocal() *Local {
	return &Local{}
}

// ID returns 0: the only domain.
func (*Local) ID() int { return 0 }

// Size returns 1.
func (*Local) Size() int { return 1 }

// Name identifies the policy in banners and logs.
func (*Local) Name() string { return "serial" }

// MinReduce of a single domain is the identity.
func (*Local) MinReduce(x float64) float64 { return x }

// ExchangeSpikes returns a copy of the local spikes: the global set of a
// one-domain simulation is the local set.
func (*Local) ExchangeSpikes(local []sim.Spike) []sim.Spike {
	out := make([]sim.Spike, len(local))
	copy(out, local)
	return out
}

// MakeOffsetMap returns the two-element partition {0, localCount}.
func (*Local) MakeOffsetMap(localCount int) []int {
	return []int{0, localCount}
}
