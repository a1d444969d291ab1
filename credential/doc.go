// Package credential holds the network credential tuple the session
// manager attaches to every request: a stable device guid, the
// server-issued bearer token, and an optional secondary session token.
//
// # Architecture boundaries
//
// Store is a thread-safe cell backed by a kv.Store. The session manager is
// its only writer; UI code reads snapshots.
//
// # What this package must NOT do
//
//   - Regenerate or clear the device guid once it exists.
//   - Verify bearer signatures. InspectBearer decodes claims for
//     diagnostics only.
package credential
