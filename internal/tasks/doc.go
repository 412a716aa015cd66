// Package tasks turns a selection of tracks into a resource pack with real-time progress reporting.
//
// # Slot Assignment
//
// [Assign] is the greedy two-pass matcher. Tracks are visited longest first and each takes the tightest
// covering slot, or the closest slot when none covers it. It is pure and never fails.
//
// # Core Operations
//
// [PackEngine] wires the probing, assignment and packaging steps:
//
//  1. [PackEngine.Resolve] : Probe every track on a bounded worker pool
//     - Fail-fast: the first probe error cancels the rest and nothing is returned
//
//  2. [PackEngine.Preview] : Resolve, then assign
//     - Returns the assignments and the tracks left without a slot
//
//  3. [PackEngine.Build] : Preview, then icon, archive, output file and history
//     - Only one build per engine at a time ([shared.ErrBuildInProgress])
//     - Icon problems are logged and the pack ships without one
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Build History
//
// The optional [BuildRecorder] interface persists each finished build (repositories.BuildRepository).
// Recording failures are logged and never fail the build.
package tasks
