// Package xid generates prefixed identifiers for persisted records.
package xid

import (
	"crypto/rand"
	"fmt"
	"time"
)

// New returns an identifier of the form prefix_<micros>_<entropy>. The
// timestamp keeps ids roughly sortable by creation time; the random suffix
// guards against collisions within the same microsecond.
func New(prefix string) string {
	entropy := make([]byte, 6)
	if _, err := rand.Read(entropy); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixMicro())
	}
	return fmt.Sprintf("%s_%d_%x", prefix, time.Now().UnixMicro(), entropy)
}
