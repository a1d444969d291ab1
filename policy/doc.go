// Package policy maps user actions to the authentication level a tenant
// requires for them.
//
// # Levels
//
// Levels are ordered: LevelAnonymous < LevelGuest < LevelLoggedIn, and are
// always compared by ordinal. Availability wraps a level with an explicit
// Pending state used while no level can be asserted yet.
//
// # Architecture boundaries
//
// Resolve is a pure function over (Action, TenantPolicy). Resolver adds
// the first-value policy fetch from a Source; it never substitutes a
// default policy while the source has not answered.
//
// # What this package must NOT do
//
//   - Import goSession, credential, or availability.
//   - Subscribe to policy changes; a snapshot of the first value is enough.
package policy
