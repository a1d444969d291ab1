// Package flows contains pure-function orchestrators for the network-bound
// parts of every Manager operation.
//
// Each flow function (RunBootstrap, RunRecoveryRace, RunLogout,
// RunStartSSO, etc.) accepts a typed dependency struct and returns a result
// value. State commits are performed through dependency callbacks, which the
// Manager implements by submitting to its serialized queue.
//
// # Architecture boundaries
//
// Flows run on the caller's goroutine, outside the Manager's queue, because
// they suspend on network calls and timers. They read state only through
// snapshot callbacks and never hold it between calls.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Publish status directly. Status changes go through commit callbacks.
package flows
