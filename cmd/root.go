package cmd

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spikesim/spikesim/sim"
	"github.com/spikesim/spikesim/sim/domain"
	"github.com/spikesim/spikesim/sim/network"
)

var (
	// CLI flags for the simulated network
	cells           int     // Total cell count across all domains
	synapsesPerCell int     // Fan-in per cell
	compartments    int     // Compartments per cable segment
	synType         string  // Synapse kind placed on each cell
	allToAll        bool    // Fully connected instead of random fan-in
	tfinal          float64 // Final simulated time (ms)
	dt              float64 // Base integration step (ms)
	sampleDT        float64 // Probe sampling interval (ms)
	seed            int64   // Master seed for topology generation
	logLevel        string  // Log verbosity level
	traceDir        string  // Directory for per-probe trace dumps
	paramsPath      string  // Optional YAML parameter file overriding flags

	// CLI flags selecting the domain policy
	meshDomains int      // Run N in-process domains over the mesh policy
	domainID    int      // This process's rank when running over TCP
	peers       []string // Listen addresses of all domains, indexed by rank
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "spikesim",
	Short: "Distributed-memory simulator for spiking neuron networks",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the network simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := sim.RunConfig{
			Cells:           cells,
			SynapsesPerCell: synapsesPerCell,
			Compartments:    compartments,
			SynType:         synType,
			AllToAll:        allToAll,
			TFinal:          tfinal,
			DT:              dt,
			SampleDT:        sampleDT,
			Seed:            seed,
			TraceDir:        traceDir,
		}
		if paramsPath != "" {
			params, err := LoadParams(paramsPath)
			if err != nil {
				logrus.Fatalf("unable to read parameter file: %v", err)
			}
			params.Apply(&cfg)
		}
		if err := network.Validate(cfg); err != nil {
			logrus.Fatalf("invalid configuration: %v", err)
		}

		switch {
		case len(peers) > 0:
			runTCP(cfg)
		case meshDomains > 1:
			runMesh(cfg)
		default:
			runOne(cfg, domain.NewLocal())
		}
	},
}

// runOne drives a single domain to completion and reports on rank 0.
func runOne(cfg sim.RunConfig, policy sim.Policy) {
	if policy.ID() == 0 {
		banner(cfg, policy)
	}

	m, err := network.Build(cfg, policy)
	if err != nil {
		logrus.Fatalf("network construction failed: %v", err)
	}
	network.SeedSpikes(m)

	start := time.Now()
	m.Run(cfg.TFinal, cfg.DT)
	m.Metrics().WallTime = time.Since(start)

	if policy.ID() == 0 {
		fmt.Printf("there were %d spikes\n", m.Communicator().NumSpikes())
		m.Metrics().Print()
	}
	if err := m.DumpTraces(cfg.TraceDir); err != nil {
		logrus.Fatalf("trace dump failed: %v", err)
	}
}

// runMesh runs meshDomains in-process domains, one goroutine each, over the
// deterministic mesh policy.
func runMesh(cfg sim.RunConfig) {
	hub := domain.NewHub(meshDomains)
	var wg sync.WaitGroup
	for id := 0; id < meshDomains; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runOne(cfg, hub.Domain(id))
		}(id)
	}
	wg.Wait()
}

// runTCP joins the TCP mesh as domainID and runs this process's share.
func runTCP(cfg sim.RunConfig) {
	policy, err := domain.NewTCP(domainID, peers)
	if err != nil {
		logrus.Fatalf("unable to join domain mesh: %v", err)
	}
	defer policy.Close()
	runOne(cfg, policy)
}

// banner prints the startup summary on domain 0.
func banner(cfg sim.RunConfig, policy sim.Policy) {
	fmt.Println("====================")
	fmt.Println("  starting spikesim")
	fmt.Printf("  - %d domains, communication policy: %s\n", policy.Size(), policy.Name())
	fmt.Println("====================")
	fmt.Printf(":: simulation to %g ms in %d steps of %g ms\n",
		cfg.TFinal, int64(math.Ceil(cfg.TFinal/cfg.DT)), cfg.DT)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().IntVar(&cells, "cells", 1000, "Total cell count across all domains")
	runCmd.Flags().IntVar(&synapsesPerCell, "synapses-per-cell", 500, "Synaptic fan-in per cell")
	runCmd.Flags().IntVar(&compartments, "compartments", 50, "Compartments per cable segment")
	runCmd.Flags().StringVar(&synType, "syn-type", "expsyn", "Synapse kind (expsyn, exp2syn)")
	runCmd.Flags().BoolVar(&allToAll, "all-to-all", false, "Fully connected topology instead of random fan-in")
	runCmd.Flags().Float64Var(&tfinal, "tfinal", 100, "Final simulated time (ms)")
	runCmd.Flags().Float64Var(&dt, "dt", 0.025, "Base integration step (ms)")
	runCmd.Flags().Float64Var(&sampleDT, "sample-dt", 0.1, "Probe sampling interval (ms)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for random topology generation")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&traceDir, "trace-dir", "", "Directory for per-probe trace dumps (default: working directory)")
	runCmd.Flags().StringVar(&paramsPath, "params", "", "YAML parameter file overriding flag defaults")

	// Domain policy selection
	runCmd.Flags().IntVar(&meshDomains, "domains", 1, "Run N in-process domains (deterministic mesh policy)")
	runCmd.Flags().IntVar(&domainID, "domain-id", 0, "This process's rank when running over TCP")
	runCmd.Flags().StringSliceVar(&peers, "peers", nil, "Listen addresses of all domains, indexed by rank (enables TCP policy)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
