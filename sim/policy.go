// policy.go
//
// The domain policy abstracts the distributed-execution environment. The sim
// package defines the interface; implementations live in sim/domain/.

package sim

// Policy identifies this domain among all simulation domains and provides the
// blocking collective operations the communicator and model driver build on.
//
// Every collective MUST be invoked by every domain the same number of times,
// in the same relative order. A domain that diverges (different call count or
// order) causes indefinite blocking in the others; this is an invariant the
// caller upholds, not a condition any Policy detects.
type Policy interface {
	// ID returns this domain's rank, stable for the lifetime of the process.
	ID() int
	// Size returns the total number of domains.
	Size() int
	// Name identifies the policy implementation for banners and logs.
	Name() string

	// MinReduce returns the minimum of x across all domains. Blocking collective.
	MinReduce(x float64) float64

	// ExchangeSpikes returns, to every domain, the concatenation of all
	// domains' local spikes in domain order. Blocking collective.
	ExchangeSpikes(local []Spike) []Spike

	// MakeOffsetMap gathers every domain's localCount and returns the
	// prefix-sum partition of the global ordering: a slice of length Size()+1
	// where element i is the offset of domain i's first item and the final
	// element is the global total. Blocking collective.
	MakeOffsetMap(localCount int) []int
}
