package pos

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashPassword produces the SHA-1 hex digest the POS auth endpoint expects as
// its pass parameter. This matches the external protocol; it is not a secure
// credential store.
func HashPassword(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
