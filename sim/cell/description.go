// Package cell provides the morphological cell-description builder and a
// leaky integrate-and-fire lowered cell implementing sim.LoweredCell.
//
// Descriptions are built once at setup and consumed once at group
// construction; the simulation core never mutates them. Structural
// violations (duplicate soma, out-of-range parent, non-cable kind used as
// cable) are precondition failures: they panic immediately at the violating
// call and are not recoverable — validate topology before construction.
package cell

import "fmt"

// SegmentKind classifies a morphological segment.
type SegmentKind int

const (
	KindPlaceholder SegmentKind = iota
	KindSoma
	KindDendrite
	KindAxon
)

func (k SegmentKind) String() string {
	switch k {
	case KindSoma:
		return "soma"
	case KindDendrite:
		return "dendrite"
	case KindAxon:
		return "axon"
	default:
		return "placeholder"
	}
}

// Location addresses a point on a segment: the segment index plus a relative
// position along it in [0, 1].
type Location struct {
	Segment int
	Pos     float64
}

// ProbeKind selects the quantity a probe observes.
type ProbeKind int

const (
	ProbeMembraneVoltage ProbeKind = iota
	ProbeMembraneCurrent
)

// Mechanism is a named parameter set attached to a segment (e.g. "hh", "pas").
type Mechanism struct {
	Name   string
	Params map[string]float64
}

// Set assigns a mechanism parameter and returns the mechanism for chaining.
func (m *Mechanism) Set(key string, value float64) *Mechanism {
	m.Params[key] = value
	return m
}

// Segment is one piece of the cell morphology. The soma occupies index 0;
// cable segments reference a parent segment.
type Segment struct {
	Kind         SegmentKind
	Parent       int
	Radius       float64 // soma radius, or cable radius at the proximal end
	DistalRadius float64 // cable radius at the distal end
	Length       float64
	compartments int
	mechanisms   []*Mechanism
}

// SetCompartments sets the number of compartments the segment is discretized
// into. Panics on n < 1.
func (s *Segment) SetCompartments(n int) {
	if n < 1 {
		panic("cell: compartment count must be >= 1")
	}
	s.compartments = n
}

// NumCompartments returns the segment's compartment count.
func (s *Segment) NumCompartments() int {
	return s.compartments
}

// AddMechanism attaches a named mechanism to the segment.
func (s *Segment) AddMechanism(name string) *Mechanism {
	m := &Mechanism{Name: name, Params: make(map[string]float64)}
	s.mechanisms = append(s.mechanisms, m)
	return m
}

// Mechanism returns the attached mechanism with the given name, or nil.
func (s *Segment) Mechanism(name string) *Mechanism {
	for _, m := range s.mechanisms {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Detector is a spike-detection point with a depolarization threshold in mV
// above resting potential.
type Detector struct {
	Loc       Location
	Threshold float64
}

// Synapse is a synapse placement of a given kind ("expsyn", "exp2syn").
type Synapse struct {
	Loc  Location
	Kind string
}

// Probe is an observation point.
type Probe struct {
	Loc  Location
	Kind ProbeKind
}

// Description is an immutable-after-setup cell description: segments with
// parent indices, spike detectors, synapse placements, and probe placements.
type Description struct {
	segments  []*Segment
	parents   []int
	detectors []Detector
	synapses  []Synapse
	probes    []Probe
}

// NewDescription creates a description holding only the soma placeholder.
func NewDescription() *Description {
	return &Description{
		segments: []*Segment{{Kind: KindPlaceholder}},
		parents:  []int{0},
	}
}

// HasSoma reports whether a soma has been added.
func (d *Description) HasSoma() bool {
	return d.segments[0].Kind == KindSoma
}

// AddSoma sets segment 0 to a soma with the given radius.
// Panics if the cell already has a soma.
func (d *Description) AddSoma(radius float64) *Segment {
	if d.HasSoma() {
		panic("cell: cell already has soma")
	}
	d.segments[0] = &Segment{Kind: KindSoma, Radius: radius, compartments: 1}
	return d.segments[0]
}

// AddCable appends a cable segment attached to the given parent.
// Panics if the parent index is out of range or the kind is not a cable kind.
func (d *Description) AddCable(parent int, kind SegmentKind, proximalRadius, distalRadius, length float64) *Segment {
	if kind != KindDendrite && kind != KindAxon {
		panic(fmt.Sprintf("cell: segment kind %v is not a cable segment", kind))
	}
	if parent >= len(d.segments) || parent < 0 {
		panic(fmt.Sprintf("cell: parent index %d out of range", parent))
	}
	s := &Segment{
		Kind:         kind,
		Parent:       parent,
		Radius:       proximalRadius,
		DistalRadius: distalRadius,
		Length:       length,
		compartments: 1,
	}
	d.segments = append(d.segments, s)
	d.parents = append(d.parents, parent)
	return s
}

// Segment returns the segment with the given index.
// Panics if no such segment exists.
func (d *Description) Segment(i int) *Segment {
	d.assertValidSegment(i)
	return d.segments[i]
}

func (d *Description) assertValidSegment(i int) {
	if i < 0 || i >= len(d.segments) {
		panic(fmt.Sprintf("cell: no such segment %d", i))
	}
}

func (d *Description) assertValidLocation(loc Location) {
	d.assertValidSegment(loc.Segment)
	if loc.Pos < 0 || loc.Pos > 1 {
		panic(fmt.Sprintf("cell: location position %f outside [0, 1]", loc.Pos))
	}
}

// NumSegments returns the segment count, including the soma slot.
func (d *Description) NumSegments() int {
	return len(d.segments)
}

// NumCompartments returns the total compartment count over all segments.
func (d *Description) NumCompartments() int {
	total := 0
	for _, s := range d.segments {
		total += s.compartments
	}
	return total
}

// AddDetector places a spike detector. Panics on an invalid location.
func (d *Description) AddDetector(loc Location, threshold float64) {
	d.assertValidLocation(loc)
	d.detectors = append(d.detectors, Detector{Loc: loc, Threshold: threshold})
}

// AddSynapse places a synapse and returns its local target index.
// Panics on an invalid location.
func (d *Description) AddSynapse(loc Location, kind string) int {
	d.assertValidLocation(loc)
	d.synapses = append(d.synapses, Synapse{Loc: loc, Kind: kind})
	return len(d.synapses) - 1
}

// AddProbe places a probe and returns its local probe index.
// Panics on an invalid location.
func (d *Description) AddProbe(loc Location, kind ProbeKind) int {
	d.assertValidLocation(loc)
	d.probes = append(d.probes, Probe{Loc: loc, Kind: kind})
	return len(d.probes) - 1
}

// Detectors returns the placed spike detectors.
func (d *Description) Detectors() []Detector { return d.detectors }

// Synapses returns the placed synapses.
func (d *Description) Synapses() []Synapse { return d.synapses }

// Probes returns the placed probes.
func (d *Description) Probes() []Probe { return d.probes }
