// Package session holds the in-memory login state of one Client: the resolved
// user identity and the pending two-factor challenge.
//
// # Single writer
//
// The [Store] is owned by the Client, which is its only writer. Readers get
// copies, never pointers into the store. There is no ambient global state.
//
// # Mutual exclusion invariant
//
// A pending [Challenge] and a completed [User] session never coexist:
// installing either one clears the other. This mirrors the login state
// machine, where a challenge is consumed exactly once on completion and
// discarded on cancel.
//
// # What this package must NOT do
//
//   - Import authflow or any internal package (no upward imports).
//   - Persist anything — state lives and dies with the Client.
//   - Hold verification codes or backup codes.
package session
