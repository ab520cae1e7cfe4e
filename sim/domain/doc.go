// Package domain provides the sim.Policy implementations: Local for
// single-process runs, Mesh for deterministic in-process multi-domain
// simulation (used by tests and the --domains CLI mode), and TCP for real
// multi-process runs over a full mesh of persistent connections.
//
// All collectives block until every domain of the policy has made the
// matching call. A domain that diverges from the common call sequence leaves
// the others blocked indefinitely; callers must keep domains in lock-step.
package domain
