package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/soundbite/internal/idempotency"
	"github.com/example/soundbite/internal/soundbite/domain"
	"github.com/example/soundbite/internal/soundbite/service"
)

const (
	maxTextLength   = 1000
	maxUserIDLength = 100
)

// HTTP exposes the soundbite endpoints.
type HTTP struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHTTP constructs a handler.
func NewHTTP(svc *service.Service, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{svc: svc, logger: logger}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Post("/v1/soundbites", h.createSoundbite)
	r.Get("/v1/soundbites/{id}", h.getSoundbite)
	return r
}

type createSoundbiteRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	UserID  string `json:"userId"`
}

func (h *HTTP) createSoundbite(w http.ResponseWriter, r *http.Request) {
	var payload createSoundbiteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if msg, details := validateCreate(payload); msg != "" {
		writeError(w, http.StatusBadRequest, msg, details)
		return
	}

	if token, ok := idempotency.TokenFromContext(r.Context()); ok {
		h.logger.Info("creating soundbite",
			zap.String("voice", payload.VoiceID),
			zap.String("idempotency_key", token))
	}

	sb, err := h.svc.Create(r.Context(), service.CreateRequest{
		Text:    payload.Text,
		VoiceID: payload.VoiceID,
		UserID:  payload.UserID,
	})
	if err != nil {
		h.logger.Error("create soundbite failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create soundbite", nil)
		return
	}
	writeJSON(w, http.StatusCreated, sb)
}

func (h *HTTP) getSoundbite(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid soundbite id", nil)
		return
	}
	sb, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "soundbite not found", map[string]any{"id": id.String()})
		return
	}
	if err != nil {
		h.logger.Error("get soundbite failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch soundbite", nil)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func validateCreate(payload createSoundbiteRequest) (string, map[string]any) {
	if strings.TrimSpace(payload.Text) == "" {
		return "text is required", nil
	}
	if len(payload.Text) > maxTextLength {
		return "text must be 1000 characters or less", map[string]any{"maxLength": maxTextLength}
	}
	if payload.VoiceID != "" && !domain.IsValidVoice(payload.VoiceID) {
		return "invalid voice id", map[string]any{"allowed": domain.Voices()}
	}
	if len(payload.UserID) > maxUserIDLength {
		return "user id must be 100 characters or less", map[string]any{"maxLength": maxUserIDLength}
	}
	return "", nil
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
