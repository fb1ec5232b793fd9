package idempotency

import (
	"net/http"

	"go.uber.org/zap"
)

// AdminHandler exposes cache inspection and maintenance endpoints. Mount it
// behind authentication; the key list reveals client tokens.
type AdminHandler struct {
	provider Provider
	logger   *zap.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(provider Provider, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{provider: provider, logger: logger}
}

// Stats reports the live entry count and keys.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	size, err := h.provider.Size(r.Context())
	if err != nil {
		h.logger.Error("cache size failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "cache backend unavailable", nil)
		return
	}
	keys, err := h.provider.Keys(r.Context())
	if err != nil {
		h.logger.Error("cache keys failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "cache backend unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"size": size, "entries": keys})
}

// Clear wipes every cached response.
func (h *AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Clear(r.Context()); err != nil {
		h.logger.Error("cache clear failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "cache backend unavailable", nil)
		return
	}
	h.logger.Info("idempotency cache cleared by admin request")
	w.WriteHeader(http.StatusNoContent)
}
