package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizePrompt trims, lowercases and collapses runs of whitespace.
func NormalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
}

// Fingerprint derives the cache key for (prompt, provider). It depends only on
// its inputs, so separate processes agree on keys.
func Fingerprint(prompt, provider string) string {
	h := sha256.New()
	h.Write([]byte(NormalizePrompt(prompt)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(provider))))
	return hex.EncodeToString(h.Sum(nil))
}
