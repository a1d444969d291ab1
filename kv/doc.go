// Package kv defines the typed key/value persistence contract used by the
// credential and user-availability stores, plus an in-memory implementation.
//
// # Architecture boundaries
//
// kv owns nothing but the contract and value encoding. Backends live in
// sub-packages (redisstore, badgerstore) and never leak their clients
// through this interface.
//
// # What this package must NOT do
//
//   - Import goSession or any sibling package.
//   - Interpret stored values; values are opaque to backends.
package kv
