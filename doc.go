// Package goSession manages the authentication session of an embedded
// comment widget: who the current user is, which authentication level
// they hold, and what must happen before a user action may proceed.
//
// A [Manager] is built once through [Builder.Build] and is safe for
// concurrent use. Reads ([Manager.Status], [Manager.LevelAvailability])
// return the last committed value. Every state transition runs on one
// serialized queue; network calls run outside it.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder],
// [Config] and the status and recovery value types. Level and policy
// types live in policy, credentials in credential, cached users in
// availability and the server contract in gateway; the root package
// re-exports the ones callers need. Flow orchestration lives under
// internal/flows and never imports goSession.
//
// # What this package must NOT do
//
//   - Mutate credentials or cached users from anywhere but the queue.
//   - Publish two equal consecutive statuses.
//   - Change the level availability while a recovery owns the status.
//   - Call the presenter outside the configured UIDispatcher.
//
// # Recovery
//
// When the server rejects an SSO user's session, [Manager.EnterAuthenticationRecoveryState]
// moves the status to SSORecovering and races a fresh SSO login against
// Recovery.Timeout. Exactly one of SSORecoveredSuccessfully or
// SSOFailedRecover is published per race.
package goSession
