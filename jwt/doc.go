// Package jwt decodes the claims carried by a CosyncJWT session token so callers
// can inspect handle, app and expiry without a round trip.
//
// Signatures are NOT verified: the client never holds the backend's signing
// key. Treat decoded claims as informational and never as authorization input.
package jwt
