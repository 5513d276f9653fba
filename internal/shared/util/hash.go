package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey returns a short stable digest of a case-insensitive identifier
// such as an email, for correlating log lines without logging the value.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return hex.EncodeToString(sum[:8])
}
