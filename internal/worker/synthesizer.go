package worker

import (
	"context"
	"fmt"

	"github.com/example/soundbite/internal/soundbite/domain"
)

// LocalSynthesizer stands in for the external speech backend. It derives a
// deterministic audio object key without producing audio, which is enough
// for local runs and tests; production deployments swap in a real
// domain.Synthesizer.
type LocalSynthesizer struct {
	prefix string
}

// NewLocalSynthesizer constructs the stand-in. An empty prefix defaults to
// "audio".
func NewLocalSynthesizer(prefix string) *LocalSynthesizer {
	if prefix == "" {
		prefix = "audio"
	}
	return &LocalSynthesizer{prefix: prefix}
}

// Synthesize satisfies domain.Synthesizer.
func (s *LocalSynthesizer) Synthesize(_ context.Context, job domain.Job) (string, error) {
	return fmt.Sprintf("%s/%s/%s.mp3", s.prefix, job.VoiceID, job.ID), nil
}
