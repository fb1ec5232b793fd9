package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
)

const fingerprintLength = 32

var cacheKeySanitizer = regexp.MustCompile(`[^a-zA-Z0-9:-]`)

// Fingerprint derives a stable digest of the request identity from method,
// path, JSON body and query parameters. JSON bodies are decoded and
// re-encoded so key order does not change the result; non-JSON bodies hash
// as raw text. Equal requests always produce equal fingerprints and any
// field difference changes the digest.
func Fingerprint(method, path string, body []byte, query url.Values) string {
	var decoded any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			decoded = string(body)
		}
	}

	// json.Marshal sorts map keys, which makes the serialization canonical.
	payload, err := json.Marshal(struct {
		Method string     `json:"method"`
		Path   string     `json:"path"`
		Body   any        `json:"body"`
		Query  url.Values `json:"query"`
	}{Method: method, Path: path, Body: decoded, Query: query})
	if err != nil {
		payload = []byte(method + " " + path)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// CacheKey joins the client token with the request fingerprint and replaces
// every character outside [A-Za-z0-9:-] so the result is safe for any
// backend. The same token with a different payload therefore maps to a
// distinct entry rather than a conflict.
func CacheKey(token, fingerprint string) string {
	return cacheKeySanitizer.ReplaceAllString(token+":"+fingerprint, "_")
}

func truncateKey(key string) string {
	if len(key) <= 16 {
		return key
	}
	return key[:16] + "..."
}
