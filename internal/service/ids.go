package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// newID builds ids of the form <prefix>_<unix-ms>_<random-hex>.
// Uniqueness is advisory only: the random suffix makes collisions
// vanishingly unlikely but nothing detects one.
func newID(prefix string, now time.Time) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// the timestamp alone rather than aborting a signup.
		return fmt.Sprintf("%s_%d", prefix, now.UnixNano())
	}
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), hex.EncodeToString(b))
}
