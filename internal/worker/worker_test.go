package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/soundbite/internal/soundbite/domain"
	"github.com/example/soundbite/internal/soundbite/repository"
	"github.com/example/soundbite/internal/worker"
)

type failingSynth struct{}

func (failingSynth) Synthesize(context.Context, domain.Job) (string, error) {
	return "", errors.New("backend unavailable")
}

func pendingJob(t *testing.T, repo domain.Repository) (domain.Job, []byte) {
	t.Helper()
	now := time.Now().UTC()
	sb := domain.Soundbite{
		ID:        uuid.New(),
		Text:      "hello",
		VoiceID:   "Joanna",
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := repo.Create(context.Background(), sb)
	require.NoError(t, err)

	job := domain.Job{ID: sb.ID, Text: sb.Text, VoiceID: sb.VoiceID, CreatedAt: now}
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return job, payload
}

func TestProcessMarksJobReady(t *testing.T) {
	repo := repository.NewMemoryRepository()
	w := worker.New(nil, repo, worker.NewLocalSynthesizer(""), nil, worker.Config{})

	job, payload := pendingJob(t, repo)
	require.NoError(t, w.Process(context.Background(), payload))

	sb, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, sb.Status)
	require.Equal(t, "audio/Joanna/"+job.ID.String()+".mp3", sb.AudioKey)
}

func TestProcessRecordsSynthesisFailure(t *testing.T) {
	repo := repository.NewMemoryRepository()
	w := worker.New(nil, repo, failingSynth{}, nil, worker.Config{})

	job, payload := pendingJob(t, repo)
	require.Error(t, w.Process(context.Background(), payload))

	sb, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusError, sb.Status)
	require.Empty(t, sb.AudioKey)
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	repo := repository.NewMemoryRepository()
	w := worker.New(nil, repo, worker.NewLocalSynthesizer(""), nil, worker.Config{})

	payload, err := json.Marshal(domain.Job{ID: uuid.New(), Text: "orphan"})
	require.NoError(t, err)
	require.Error(t, w.Process(context.Background(), payload))
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	w := worker.New(nil, repository.NewMemoryRepository(), worker.NewLocalSynthesizer(""), nil, worker.Config{})
	require.Error(t, w.Process(context.Background(), []byte("not json")))
}

func TestRunRequiresConnection(t *testing.T) {
	w := worker.New(nil, repository.NewMemoryRepository(), worker.NewLocalSynthesizer(""), nil, worker.Config{})
	require.Error(t, w.Run(context.Background()))
}
