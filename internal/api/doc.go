// Package api holds the CosyncJWT REST contract: route paths, credential
// header names, request bodies, and decoders for the backend's response shapes.
//
// # What this package must NOT do
//
//   - Perform network I/O; the root package sends requests through a Transport.
//   - Hash passwords; callers pass already-digested values.
//   - Be imported from outside this module.
package api
