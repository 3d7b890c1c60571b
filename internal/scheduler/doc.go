// Package scheduler drives task descriptors.
//
// Cron descriptors are handed to a cron runner (robfig/cron by default). Fixed-rate and
// fixed-delay descriptors each get their own timer loop:
//   - fixed rate dispatches every interval and never waits, so runs of one task may overlap
//   - fixed delay waits for the run to finish, then waits a full interval
//
// Descriptor values are resolved against configuration once, in Start. A descriptor that
// fails to resolve is logged and skipped; the rest are still scheduled.
//
// Shutdown closes the dispatch gate, cancels the context task bodies receive and stops
// the loops. It does not wait for running task bodies.
package scheduler
