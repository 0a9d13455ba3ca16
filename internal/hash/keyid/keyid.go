// Package keyid derives stable work item keys from article URLs.
package keyid

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// KeyLen is the fixed width of a key in hex characters.
const KeyLen = 16

// Canonicalize normalizes a URL so equivalent spellings map to one key:
// trims whitespace, lowercases scheme and host, and drops the fragment.
func Canonicalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String()
}

// FromURL returns the fixed-width key for a source URL. The same URL
// always yields the same key across runs and processes.
func FromURL(raw string) string {
	sum := sha256.Sum256([]byte(Canonicalize(raw)))
	return hex.EncodeToString(sum[:])[:KeyLen]
}
