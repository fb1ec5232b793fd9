package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/soundbite/internal/soundbite/domain"
)

// Service coordinates soundbite creation and lookup between the HTTP layer,
// the repository and the processing queue.
type Service struct {
	repo      domain.Repository
	publisher domain.JobPublisher
	clock     domain.Clock
	logger    *zap.Logger
}

// New constructs a Service with the required collaborators.
func New(repo domain.Repository, publisher domain.JobPublisher, clock domain.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, publisher: publisher, clock: clock, logger: logger}
}

// CreateRequest is the validated payload for a new soundbite job.
type CreateRequest struct {
	Text    string
	VoiceID string
	UserID  string
}

// Create persists a pending job and enqueues it for synthesis. The caller is
// expected to have validated the payload; the idempotency layer above this
// guarantees at-most-once submission per key within the TTL window for
// sequential retries.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Soundbite, error) {
	voice := req.VoiceID
	if voice == "" {
		voice = domain.DefaultVoice
	}
	now := s.clock.Now()
	sb := domain.Soundbite{
		ID:        uuid.New(),
		Text:      req.Text,
		VoiceID:   voice,
		UserID:    req.UserID,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Create(ctx, sb)
	if err != nil {
		return domain.Soundbite{}, fmt.Errorf("create soundbite: %w", err)
	}

	job := domain.Job{
		ID:        created.ID,
		Text:      created.Text,
		VoiceID:   created.VoiceID,
		UserID:    created.UserID,
		CreatedAt: created.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		// The job record stays pending; a redelivery sweep can pick it up.
		s.logger.Error("failed to enqueue soundbite job",
			zap.String("id", created.ID.String()), zap.Error(err))
		return domain.Soundbite{}, fmt.Errorf("enqueue soundbite job: %w", err)
	}

	s.logger.Info("soundbite job created",
		zap.String("id", created.ID.String()),
		zap.String("voice", created.VoiceID))
	return created, nil
}

// Get retrieves a soundbite by identifier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Soundbite, error) {
	return s.repo.GetByID(ctx, id)
}
