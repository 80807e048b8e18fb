// Package sha256 derives stable storage keys for cached manifests.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// Digest returns the hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ObjectKey maps a normalized target URL to a relative object path of the
// form "<prefix>/<host>/<digest>.json". The host segment keeps listings
// browsable; the digest makes the key safe for any URL.
func ObjectKey(prefix, targetURL string) string {
	host := "unknown"
	if u, err := url.Parse(targetURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	name := Digest(targetURL) + ".json"
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Join(host, name)
	}
	return path.Join(prefix, host, name)
}
