// Package cosyncjwt is a client for the CosyncJWT authentication service: account
// signup and login (including anonymous and two-factor flows), password reset and
// change, phone verification, username management, and account deletion.
//
// A [Client] is created through [Builder.Build]. It holds an in-memory [Session]
// (JWT, access token, login token) and forwards typed requests to the REST backend
// through a [transport.Transport].
//
// # Architecture boundaries
//
// cosyncjwt is the public surface. It exposes [Client], [Builder], [Config],
// [Session], and value types ([AuthResult], [AppPolicy], [User], MetricsSnapshot).
// Route paths and wire bodies live under internal/api; password digest and policy
// rules live in package password.
//
// # Session lifecycle
//
// The Session is mutated only as a side effect of a successful Login,
// LoginComplete, LoginAnonymous, Signup, Register or CompleteSignup, and cleared
// by Logout. A failed operation never touches it. The Session is not persisted.
//
// Session fields are guarded by a mutex, but two login-family or signup-family
// operations running concurrently on one Client still race at the flow level:
// the last successful response wins. Callers that need ordering must serialise
// those calls themselves.
//
// # What this package must NOT do
//
//   - Retry failed requests or fall back to another endpoint.
//   - Persist tokens across process restarts.
//   - Log or audit passwords, codes, or tokens.
//   - Let a panic from a Transport escape a Client method.
package cosyncjwt
