package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxRequestSize caps the body size eligible for idempotency processing.
const maxRequestSize = 1 << 20 // 1 MiB

var uuidV4Pattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

type tokenContextKey struct{}
type fingerprintContextKey struct{}

// TokenFromContext returns the validated idempotency key for this request.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok
}

// FingerprintFromContext returns the request fingerprint for this request.
func FingerprintFromContext(ctx context.Context) (string, bool) {
	fp, ok := ctx.Value(fingerprintContextKey{}).(string)
	return fp, ok
}

// Middleware is the interception layer: it replays cached responses for
// repeated (token, fingerprint) pairs and captures first executions for
// later replay. Cache trouble is logged and degrades to plain pass-through;
// it never fails a request the downstream handler would have served.
type Middleware struct {
	provider Provider
	logger   *zap.Logger
}

// NewMiddleware constructs the interception layer over the given provider.
func NewMiddleware(provider Provider, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{provider: provider, logger: logger}
}

// Handler wires the middleware into a chi/net-http chain. It must run after
// Gate so registered route policies are already on the context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		body, ok := m.readBody(w, r)
		if !ok {
			return
		}

		policy, eligible := PolicyFromContext(r.Context())
		if !eligible {
			policy, eligible = fallbackPolicy(r)
		}

		token := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
		if token == "" {
			if eligible && policy.Required {
				writeError(w, http.StatusBadRequest,
					"Idempotency-Key header is required for this operation",
					map[string]any{
						"header":      HeaderIdempotencyKey,
						"description": "Provide a unique identifier to prevent duplicate requests",
						"example":     HeaderIdempotencyKey + ": 550e8400-e29b-41d4-a716-446655440000",
					})
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !uuidV4Pattern.MatchString(token) {
			writeError(w, http.StatusBadRequest,
				"Invalid Idempotency-Key format. Must be a valid UUID v4",
				map[string]any{
					"provided": token,
					"expected": "UUID v4 format (e.g., 550e8400-e29b-41d4-a716-446655440000)",
				})
			return
		}

		fingerprint := Fingerprint(r.Method, r.URL.Path, body, r.URL.Query())
		key := CacheKey(token, fingerprint)

		cached, hit, err := m.provider.Get(r.Context(), key)
		if err != nil {
			// A broken cache downgrades to a miss; the request still runs.
			cacheErrors.Inc()
			m.logger.Error("idempotency cache lookup failed",
				zap.String("key", truncateKey(key)), zap.Error(err))
		}
		if hit {
			cacheHits.Inc()
			m.logger.Info("idempotency cache hit",
				zap.String("key", truncateKey(key)),
				zap.Int("status", cached.Status),
				zap.Int64("age_ms", time.Now().UnixMilli()-cached.Timestamp))
			m.replay(w, cached)
			return
		}
		cacheMisses.Inc()

		ctx := context.WithValue(r.Context(), tokenContextKey{}, token)
		ctx = context.WithValue(ctx, fingerprintContextKey{}, fingerprint)

		rec := newRecorder()
		next.ServeHTTP(rec, r.WithContext(ctx))
		m.deliver(ctx, w, rec, key, policy.TTL, eligible)
	})
}

// readBody buffers the request body so it can be both fingerprinted and
// replayed to the handler. Oversized bodies are rejected before any cache
// interaction; unreadable ones skip idempotency rather than fail the call.
func (m *Middleware) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize+1))
	_ = r.Body.Close()
	if err != nil {
		m.logger.Warn("could not read request body for idempotency", zap.Error(err))
		r.Body = io.NopCloser(bytes.NewReader(body))
		return nil, true
	}
	if len(body) > maxRequestSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			"Request body too large for idempotency processing",
			map[string]any{
				"maxSize":    strconv.Itoa(maxRequestSize) + " bytes",
				"actualSize": "> " + strconv.Itoa(maxRequestSize) + " bytes",
			})
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, true
}

// replay emits a stored response with provenance markers overlaid. The
// stored body is copied so the cached record stays unmarked.
func (m *Middleware) replay(w http.ResponseWriter, cached CachedResponse) {
	body := make(map[string]any, len(cached.Body)+3)
	for k, v := range cached.Body {
		body[k] = v
	}
	body["_idempotent"] = true
	body["_cached"] = true
	body["_originalTimestamp"] = time.UnixMilli(cached.Timestamp).UTC().Format(time.RFC3339)
	writeJSON(w, cached.Status, body)
}

// deliver forwards the captured downstream response to the client. On
// cache-eligible routes, successful JSON object responses are persisted
// (without markers) and the live copy gains the _idempotent flag. A failed
// cache write is logged and the response is delivered regardless.
func (m *Middleware) deliver(ctx context.Context, w http.ResponseWriter, rec *recorder, key string, ttl time.Duration, eligible bool) {
	var payload map[string]any
	cacheable := eligible && rec.status >= 200 && rec.status < 300 && rec.buf.Len() > 0
	if cacheable {
		if err := json.Unmarshal(rec.buf.Bytes(), &payload); err != nil || payload == nil {
			cacheable = false
		}
	}

	if !cacheable {
		rec.flushTo(w)
		return
	}

	record := CachedResponse{Body: payload, Status: rec.status, Timestamp: time.Now().UnixMilli()}
	if err := m.provider.Set(ctx, key, record, ttl); err != nil {
		cacheErrors.Inc()
		m.logger.Error("failed to cache idempotent response",
			zap.String("key", truncateKey(key)),
			zap.Int("status", rec.status),
			zap.Error(err))
	} else {
		cacheStores.Inc()
	}

	marked := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		marked[k] = v
	}
	marked["_idempotent"] = true

	out, err := json.Marshal(marked)
	if err != nil {
		rec.flushTo(w)
		return
	}
	copyHeaders(w.Header(), rec.header)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(rec.status)
	_, _ = w.Write(out)
}

// recorder buffers the downstream response so the middleware can inspect
// status and body before anything reaches the client.
type recorder struct {
	header      http.Header
	buf         bytes.Buffer
	status      int
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.buf.Write(p)
}

func (r *recorder) flushTo(w http.ResponseWriter) {
	copyHeaders(w.Header(), r.header)
	w.WriteHeader(r.status)
	_, _ = w.Write(r.buf.Bytes())
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		if k == "Content-Length" {
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

type errorBody struct {
	Error      string         `json:"error"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Details    map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]any) {
	writeJSON(w, status, errorBody{
		Error:      http.StatusText(status),
		Message:    message,
		StatusCode: status,
		Details:    details,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
