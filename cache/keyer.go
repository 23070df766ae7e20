package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// RequestKey derives the cache key of an upstream GET. Query parameters are
// re-encoded in sorted order so that two URLs naming the same request share
// an entry. A URL that does not parse is hashed verbatim.
func RequestKey(rawURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL(rawURL)))
	return hex.EncodeToString(sum[:])
}

func canonicalURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = u.Query().Encode()
	u.Fragment = ""
	return u.String()
}
