package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spikesim/spikesim/sim"
)

// Params mirrors sim.RunConfig for YAML parameter files. Pointer fields so
// only keys present in the file override the flag values.
type Params struct {
	Cells           *int     `yaml:"cells"`
	SynapsesPerCell *int     `yaml:"synapses_per_cell"`
	Compartments    *int     `yaml:"compartments"`
	SynType         *string  `yaml:"syn_type"`
	AllToAll        *bool    `yaml:"all_to_all"`
	TFinal          *float64 `yaml:"tfinal"`
	DT              *float64 `yaml:"dt"`
	SampleDT        *float64 `yaml:"sample_dt"`
	Seed            *int64   `yaml:"seed"`
	TraceDir        *string  `yaml:"trace_dir"`
}

// LoadParams reads a YAML parameter file.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// Apply overrides the config fields present in the parameter file.
func (p *Params) Apply(cfg *sim.RunConfig) {
	if p.Cells != nil {
		cfg.Cells = *p.Cells
	}
	if p.SynapsesPerCell != nil {
		cfg.SynapsesPerCell = *p.SynapsesPerCell
	}
	if p.Compartments != nil {
		cfg.Compartments = *p.Compartments
	}
	if p.SynType != nil {
		cfg.SynType = *p.SynType
	}
	if p.AllToAll != nil {
		cfg.AllToAll = *p.AllToAll
	}
	if p.TFinal != nil {
		cfg.TFinal = *p.TFinal
	}
	if p.DT != nil {
		cfg.DT = *p.DT
	}
	if p.SampleDT != nil {
		cfg.SampleDT = *p.SampleDT
	}
	if p.Seed != nil {
		cfg.Seed = *p.Seed
	}
	if p.TraceDir != nil {
		cfg.TraceDir = *p.TraceDir
	}
}
