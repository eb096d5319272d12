// Package stubserver is an in-memory CosyncJWT backend used by tests, the CLI
// demo and examples. It implements every app-user route with enough state
// (users, pending signups, invitations, reset and phone codes) to drive the
// multi-step flows end to end.
//
// Verification codes that the real service would email or text are exposed
// through accessors such as SignupCode and ResetCode.
//
// Passwords arrive as MD5 digests and are stored as argon2id hashes of those
// digests; CheckPassword and PasswordHash let tests inspect them.
//
// SetLoginLimiter turns on per-handle failed-login throttling backed by Redis;
// throttled logins are answered with 429.
//
// # What this package must NOT do
//
//   - Import the root cosyncjwt package; root tests depend on this one.
//   - Be used as a production backend. Nothing is persisted.
package stubserver
