// Package fingerprint computes stable content hashes for duplicate detection.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher fingerprints normalized resume text. Two submissions that differ
// only in whitespace or letter case map to the same digest.
type Hasher struct{}

func New() *Hasher {
	return &Hasher{}
}

func (h *Hasher) Fingerprint(text string) string {
	normalized := normalize(text)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	return strings.Join(fields, " ")
}
