// Package password implements the client-side password rules of the CosyncJWT
// protocol: the wire digest applied to every password field and the policy
// validator evaluated against the tenant's server-supplied rules.
//
// # Wire digest
//
// [Digest] returns the lowercase hex MD5 of its input (32 characters). The
// backend compares this value directly, so the construction must stay
// byte-identical:
//
//	Digest("hello world") == "5eb63bbbe01eeed093cb22bb8f5acdc3"
//
// The digest is transport obfuscation only. It is unsalted and must not be
// treated as a security boundary.
//
// # Storage
//
// [Argon2] is for the backend side of the protocol: it stores
// argon2id(Digest(pw)) with a per-hash salt and verifies incoming digests
// against it in constant time. The wire format does not change.
//
// # Policy
//
// [Valid] and [Check] evaluate a candidate against a [Policy]. All rules must
// hold simultaneously: minimum length in UTF-16 code units (emoji count as
// 2), minimum ASCII uppercase, ASCII lowercase, ASCII digit, and members of
// [SpecialCharacters].
//
// # What this package must NOT do
//
//   - Fetch policy from the network; callers pass the Policy in.
//   - Log or cache plaintext passwords or digests.
//   - Import any other cosyncjwt package.
package password
