// Package engine implements the runcost series computation engine.
//
// The engine projects independently scheduled components forward in time
// and merges their effects into one observable value sequence, optionally
// deriving a running-cost sequence from it.
//
// ARCHITECTURE:
//
// Discrete-Event Loop:
// Compute seeds a min-heap with one event per component, then repeatedly
// pops the earliest event, applies that component's formula to the shared
// aggregate value, records the result, and asks the component when it fires
// next. Components retire once their next fire time passes the window end.
//
// Event Processing Flow:
//  1. Seed: each component schedules its first fire time from windowStart
//  2. Pop the earliest (timestamp, seq) event
//  3. Apply the formula; delta feeds the running cost when negative
//  4. Append a datapoint, or merge into the last one when the timestamp repeats
//  5. Reschedule the component if its next fire time is within the window
//
// CRITICAL PATTERNS:
//
// Deterministic Ordering:
// Events carry a seq number from a per-computation Clock. Ties on timestamp
// pop in enqueue order, seeded in component declaration order. Identical
// inputs always produce identical output.
//
// Forward Progress:
// A component whose next fire time is not strictly after the time it was
// scheduled from is reported as an InvariantViolation instead of looping.
//
// Each call to Compute owns its queue, clock and output sequences. Calls
// share nothing and may run concurrently.
package engine
