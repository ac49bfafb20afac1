// Package harness runs YAML-defined store scenarios for conformance
// testing.
//
// A scenario is a sequence of repository operations with optional
// expectations on their outcome. The runner executes them against a
// throwaway store with a frozen clock and a fixed uuid source, so the
// resulting brain document and event trace are byte-deterministic and
// can be compared against golden files.
package harness
