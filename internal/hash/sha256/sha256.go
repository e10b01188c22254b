// Package sha256 provides the digest used for fallback posting identities.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements crawler.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashFields digests fields joined by the ASCII unit separator, so
// ("ab", "c") and ("a", "bc") never collide.
func (h *Hasher) HashFields(fields ...string) (string, error) {
	size := len(fields)
	for _, f := range fields {
		size += len(f)
	}
	buf := make([]byte, 0, size)
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, 0x1f)
		}
		buf = append(buf, f...)
	}
	return h.Hash(buf)
}
