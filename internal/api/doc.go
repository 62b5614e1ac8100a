// Package api is the HTTP transport for the backend auth endpoints.
//
// Every method performs exactly one request: no retries, no backoff. A non-2xx
// answer decodes into [*Error] carrying the enveloped server message and any
// rate-limit details; a transport failure or an undecodable 2xx body surfaces
// as a plain wrapped error. Callers classify with [RateDetailsFrom],
// [IsRejected], and [IsUnauthorized].
//
// The backend is session-cookie authenticated; a cookie jar on the HTTP
// client carries the session across calls. Every request gets an
// X-Request-ID (from the caller's context, or a fresh UUID).
//
// # What this package must NOT do
//
//   - Hold flow state — it is a stateless codec around *http.Client.
//   - Map errors to public sentinels; that mapping belongs to the flows.
//   - Retry, redirect-follow into other hosts, or buffer unbounded bodies.
package api
