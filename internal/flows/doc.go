// Package flows contains pure-function orchestrators for every Client operation.
//
// Each flow function (RunLogin, RunCompleteChallenge, RunEnable, etc.) accepts
// a typed dependency struct and returns results without side-effects beyond
// those dependencies. This design enables exhaustive unit testing with mock
// dependencies and keeps the Client type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the backend transport, the rate-limit
// tracker, the audit dispatcher, and metrics. They do NOT own any of these
// resources — ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authflow (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency funcs.
package flows
