// Package control implements the cooperative run-control primitives shared by
// the pipeline: a one-way cancellation Token, a pause Gate, cancellable
// sleeps, and an Executor for bounding blocking provider calls.
//
// Cancellation is terminal for a run and always takes precedence over pause.
// Pause only holds work at defined suspension points; in-flight provider
// requests are never interrupted by pause.
package control
