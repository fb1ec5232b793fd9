package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/example/soundbite/internal/soundbite/domain"
)

// MemoryRepository keeps soundbites in process memory, suitable for tests
// and single-node deployments without Redis.
type MemoryRepository struct {
	mu         sync.RWMutex
	soundbites map[uuid.UUID]domain.Soundbite
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{soundbites: make(map[uuid.UUID]domain.Soundbite)}
}

// Create stores the soundbite and returns it.
func (m *MemoryRepository) Create(_ context.Context, sb domain.Soundbite) (domain.Soundbite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.soundbites[sb.ID] = sb
	return sb, nil
}

// GetByID retrieves a soundbite.
func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Soundbite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sb, ok := m.soundbites[id]
	if !ok {
		return domain.Soundbite{}, domain.ErrNotFound
	}
	return sb, nil
}

// Update replaces the stored soundbite.
func (m *MemoryRepository) Update(_ context.Context, sb domain.Soundbite) (domain.Soundbite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.soundbites[sb.ID]; !ok {
		return domain.Soundbite{}, domain.ErrNotFound
	}
	m.soundbites[sb.ID] = sb
	return sb, nil
}
