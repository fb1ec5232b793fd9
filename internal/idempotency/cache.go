// Package idempotency deduplicates unsafe HTTP requests keyed by a
// client-supplied Idempotency-Key header. A composite key derived from the
// token and a fingerprint of the request identifies each logical operation;
// successful responses are cached and replayed verbatim for retries within
// the configured TTL.
package idempotency

import (
	"context"
	"time"
)

// CachedResponse is the replayable outcome of a completed request. Body holds
// the JSON object exactly as the handler produced it, without the provenance
// markers added on replay.
type CachedResponse struct {
	Body      map[string]any `json:"response"`
	Status    int            `json:"status"`
	Timestamp int64          `json:"timestamp"` // unix milliseconds at store time
}

// Provider stores cached responses under composite idempotency keys. Records
// are immutable once written; a key only becomes writable again after its
// entry expires.
type Provider interface {
	// Get returns the stored record if present and unexpired.
	Get(ctx context.Context, key string) (CachedResponse, bool, error)
	// Set stores or overwrites the record. A ttl <= 0 falls back to the
	// provider default.
	Set(ctx context.Context, key string, value CachedResponse, ttl time.Duration) error
	// Delete removes the record; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes all records.
	Clear(ctx context.Context) error
	// Size reports the number of live entries, purging expired ones.
	Size(ctx context.Context) (int, error)
	// Keys lists all live keys, purging expired entries.
	Keys(ctx context.Context) ([]string, error)
}
