package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/soundbite/internal/soundbite/domain"
	"github.com/example/soundbite/internal/soundbite/handler"
	"github.com/example/soundbite/internal/soundbite/repository"
	"github.com/example/soundbite/internal/soundbite/service"
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Job) error { return nil }

func newRouter(t *testing.T) (http.Handler, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	svc := service.New(repo, noopPublisher{}, domain.SystemClock{}, nil)
	return handler.NewHTTP(svc, nil).Router(), repo
}

func post(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/soundbites", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	var decoded map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &decoded)
	return rr, decoded
}

func TestCreateSoundbite(t *testing.T) {
	router, _ := newRouter(t)

	rr, body := post(t, router, `{"text":"hello world"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "pending", body["status"])
	require.Equal(t, domain.DefaultVoice, body["voiceId"])
	require.NotEmpty(t, body["id"])
}

func TestCreateSoundbiteValidation(t *testing.T) {
	router, _ := newRouter(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty text", `{"text":""}`, "text is required"},
		{"whitespace text", `{"text":"   "}`, "text is required"},
		{"too long", `{"text":"` + strings.Repeat("a", 1001) + `"}`, "1000 characters"},
		{"bad voice", `{"text":"hi","voiceId":"HAL9000"}`, "invalid voice"},
		{"long user id", `{"text":"hi","userId":"` + strings.Repeat("u", 101) + `"}`, "100 characters"},
		{"malformed json", `{"text":`, "invalid JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, body := post(t, router, tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Contains(t, body["message"], tc.want)
		})
	}
}

func TestGetSoundbite(t *testing.T) {
	router, repo := newRouter(t)

	sb, err := repo.Create(context.Background(), domain.Soundbite{
		ID:      uuid.New(),
		Text:    "hello",
		VoiceID: "Joanna",
		Status:  domain.StatusReady,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/soundbites/"+sb.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, sb.ID.String(), got["id"])
	require.Equal(t, "ready", got["status"])
}

func TestGetSoundbiteNotFound(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/soundbites/"+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetSoundbiteBadID(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/soundbites/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
