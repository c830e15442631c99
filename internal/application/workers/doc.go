// Package workers implements the worker pool that executes submitted tasks.
//
// The pool subscribes once to task events and hands every submitted task
// to one of a fixed number of worker goroutines, which run it through the
// task runner. The health monitor periodically reports worker status and
// provider health to logs, metrics and registered observers.
package workers
