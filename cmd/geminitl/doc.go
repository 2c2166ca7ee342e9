// Package main hosts the geminitl CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration loading, provider
// orchestration, the phase controller, and the job queue into user-facing
// commands. Batch runs go through `run`, single flat runs through
// `translate`, and post-hoc proofing through `proof`; `queue`, `providers`,
// and `config` cover maintenance.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
