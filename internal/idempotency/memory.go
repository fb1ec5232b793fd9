package idempotency

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxEntries    = 10000
	defaultSweepInterval = 5 * time.Minute
)

type memoryEntry struct {
	value        CachedResponse
	expiresAt    int64 // unix milliseconds
	accessCount  int64
	lastAccessed int64
}

// MemoryConfig tunes the in-process provider. Zero values select defaults.
type MemoryConfig struct {
	MaxEntries    int
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

// MemoryProvider is a process-local Provider backed by a map. Entries expire
// by TTL and the least recently accessed entry is evicted when the store is
// at capacity. A background sweep bounds memory growth between accesses;
// Close stops it. Contents do not survive a restart.
type MemoryProvider struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	cfg     MemoryConfig
	logger  *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryProvider constructs the provider and starts its sweep loop.
func NewMemoryProvider(logger *zap.Logger, cfg MemoryConfig) *MemoryProvider {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MemoryProvider{
		entries: make(map[string]*memoryEntry),
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Get returns the record when present and unexpired, deleting it lazily when
// the TTL has passed. Hits update the access statistics used for eviction.
func (m *MemoryProvider) Get(_ context.Context, key string) (CachedResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return CachedResponse{}, false, nil
	}
	now := time.Now().UnixMilli()
	if now > entry.expiresAt {
		delete(m.entries, key)
		return CachedResponse{}, false, nil
	}
	entry.accessCount++
	entry.lastAccessed = now
	return entry.value, true, nil
}

// Set stores the record, evicting the least recently accessed entry first
// when the store is full.
func (m *MemoryProvider) Set(_ context.Context, key string, value CachedResponse, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.cfg.MaxEntries {
		m.evictOldestLocked()
	}
	now := time.Now().UnixMilli()
	m.entries[key] = &memoryEntry{
		value:        value,
		expiresAt:    now + ttl.Milliseconds(),
		lastAccessed: now,
	}
	return nil
}

// Delete removes the entry if present.
func (m *MemoryProvider) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear drops all entries.
func (m *MemoryProvider) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	return nil
}

// Size reports the live entry count after purging expired entries.
func (m *MemoryProvider) Size(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeExpiredLocked()
	return len(m.entries), nil
}

// Keys lists live keys after purging expired entries.
func (m *MemoryProvider) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeExpiredLocked()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys, nil
}

// Close stops the background sweep. Stored entries are unaffected.
func (m *MemoryProvider) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *MemoryProvider) sweepLoop() {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			removed := m.removeExpiredLocked()
			m.mu.Unlock()
			if removed > 0 {
				m.logger.Debug("swept expired idempotency entries", zap.Int("removed", removed))
			}
		}
	}
}

func (m *MemoryProvider) removeExpiredLocked() int {
	now := time.Now().UnixMilli()
	removed := 0
	for key, entry := range m.entries {
		if now > entry.expiresAt {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryProvider) evictOldestLocked() {
	var oldestKey string
	oldestTime := int64(1<<63 - 1)
	for key, entry := range m.entries {
		if entry.lastAccessed < oldestTime {
			oldestTime = entry.lastAccessed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
		cacheEvictions.Inc()
		m.logger.Debug("evicted least recently used idempotency entry", zap.String("key", truncateKey(oldestKey)))
	}
}
