package bwx

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a hex blake2b-256 digest of clipboard content.
func Fingerprint(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// MatchesFingerprint reports whether content, as read back from a clipboard,
// is what was fingerprinted. Paste tools often append a newline, so a single
// trailing line break is tolerated.
func MatchesFingerprint(content, fingerprint string) bool {
	candidates := []string{content, strings.TrimSuffix(strings.TrimSuffix(content, "\n"), "\r")}
	for _, c := range candidates {
		if subtle.ConstantTimeCompare([]byte(Fingerprint(c)), []byte(fingerprint)) == 1 {
			return true
		}
	}
	return false
}
