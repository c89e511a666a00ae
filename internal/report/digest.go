package report

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest returns the lowercase hex SHA-256 of the report's UTF-8 bytes.
func Digest(report string) string {
	sum := sha256.Sum256([]byte(report))
	return hex.EncodeToString(sum[:])
}

// ShouldNotify is the dedup gate: it reports whether the report content
// differs from the last notified digest, and returns the new digest to
// persist when it does.
//
// An empty (or whitespace-only) report never notifies, regardless of
// lastDigest. An absent lastDigest (first run, or the hash object was lost)
// fires the gate: fail-open toward over-notification rather than silent
// suppression.
func ShouldNotify(report, lastDigest string) (bool, string) {
	if strings.TrimSpace(report) == "" {
		return false, ""
	}
	d := Digest(report)
	return d != lastDigest, d
}
