package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

var ErrNotFound = errors.New("soundbite not found")

// DefaultVoice is used when a request does not pick one.
const DefaultVoice = "Joanna"

var voices = map[string]struct{}{
	"Joanna": {}, "Matthew": {}, "Salli": {}, "Kimberly": {}, "Kendra": {},
	"Justin": {}, "Kevin": {}, "Ruth": {}, "Stephen": {}, "Ivy": {},
}

// IsValidVoice reports whether the synthesis backend knows the voice.
func IsValidVoice(voice string) bool {
	_, ok := voices[voice]
	return ok
}

// Voices lists the supported voice identifiers.
func Voices() []string {
	out := make([]string, 0, len(voices))
	for v := range voices {
		out = append(out, v)
	}
	return out
}

// Soundbite is a text-to-speech job and its lifecycle state.
type Soundbite struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	VoiceID   string    `json:"voiceId"`
	UserID    string    `json:"userId,omitempty"`
	AudioKey  string    `json:"audioKey,omitempty"`
	URL       string    `json:"url,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Job is the queue message handed to the synthesis worker.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	VoiceID   string    `json:"voiceId"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	Create(ctx context.Context, sb Soundbite) (Soundbite, error)
	GetByID(ctx context.Context, id uuid.UUID) (Soundbite, error)
	Update(ctx context.Context, sb Soundbite) (Soundbite, error)
}

// JobPublisher hands a job to the processing queue.
type JobPublisher interface {
	Publish(ctx context.Context, job Job) error
}

// Synthesizer turns a job into a stored audio object and returns its key.
// The actual speech backend lives outside this process.
type Synthesizer interface {
	Synthesize(ctx context.Context, job Job) (string, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
