// Package jobs holds the housekeeping tasks shipped with tickwork.
//
// Stateless jobs self-register in task.Default from init, so importing the package is
// enough to schedule them. Jobs that need process resources (the run-history store, a
// systemd connection) are registered by the app through Register.
//
// Every schedule reads its values from the jobs.* config namespace with defaults, so a
// bare config runs them with sensible timing.
package jobs
