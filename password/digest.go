package password

import (
	"crypto/md5"
	"encoding/hex"
)

// DigestLength is the length of a hex-encoded digest.
const DigestLength = md5.Size * 2

// Digest returns the lowercase hex MD5 of s. Every password field sent to the
// backend goes through Digest first.
func Digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
