// Package scheduler defers callbacks from foreign goroutines onto a single
// worker goroutine.
//
// The mesh engine posts events on its own dispatch goroutine, which must
// return promptly and must never run user code. The event bridge hands each
// event to a Scheduler instead; the worker runs the user's handler later,
// in arrival order.
//
// # Overflow
//
// The queue is bounded. Schedule never blocks: if the queue is full the new
// callback is dropped, Dropped is incremented and a debug line is logged.
// Older queued callbacks are kept, so a burst loses its tail rather than
// reordering.
//
// # Shutdown
//
// Close drains callbacks that are already queued, then stops the worker.
// A panicking callback is recovered and logged; the worker keeps running.
package scheduler
