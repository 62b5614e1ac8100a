// Package authflow implements the client side of a password + two-factor
// login flow against a REST backend: the credentials step, the 2FA challenge
// completion step (TOTP or backup code), the server-driven rate-limit
// tracker, and the settings flow for enabling and disabling the second
// factor.
//
// The package is designed for concurrent callers: Client methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
// All state transitions are serialized behind one mutex, so at most one
// operation is in flight per Client.
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Client], [Builder], [Config],
// and value types (LoginResult, TwoFactorStatus, etc.). All internal
// coordination — flow orchestration, the HTTP transport, audit dispatch,
// metrics recording — lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Persist anything: sessions, challenges, and backup codes live and die
//     with the Client.
//   - Verify codes or mint tokens locally — the backend is authoritative for
//     every credential decision.
//   - Retry failed requests or run client-side lockout timers; the server's
//     answer is the only source of rate-limit truth.
//
// # Error contract
//
// Every operation returns a sentinel from errors.go (test with [errors.Is]);
// errors carrying a backend answer also match *[APIError] via [errors.As],
// preserving the enveloped server message.
package authflow
