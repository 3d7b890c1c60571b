// Package task holds the normalized description of recurring work: the schedule kind
// and value, the initial delay, the enabled flag, the time unit and the work itself.
//
// Descriptors come from three origins that all reduce to the same shape:
//   - plain functions (Func)
//   - values implementing Runnable
//   - methods bound to a shared instance through a method table (Instance)
//
// Values such as "5s", "${app.interval:5000}" or "${app.enabled}" are kept as declared
// strings; they are resolved against configuration when the scheduler starts.
package task
