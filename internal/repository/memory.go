package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/sunmoon/internal/apperror"
	"github.com/rocketscienceinc/sunmoon/internal/entity"
)

type memoryEntry struct {
	session   entity.Session
	expiresAt time.Time
}

type memorySession struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time

	lastSweep time.Time
}

// NewMemorySessionRepository - keeps sessions in process memory. Entries
// expire ttl after their last write and are evicted on the next read of the
// entry or the next write to the store.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return &memorySession{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (that *memorySession) CreateOrUpdate(_ context.Context, session entity.Session) error {
	entry := memoryEntry{session: session}
	if that.ttl > 0 {
		entry.expiresAt = that.now().Add(that.ttl)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.evictExpired()
	that.sessions[session.ID] = entry

	return nil
}

func (that *memorySession) GetByID(_ context.Context, id string) (entity.Session, error) {
	that.mu.RLock()
	entry, ok := that.sessions[id]
	that.mu.RUnlock()

	if !ok {
		return entity.Session{}, apperror.ErrSessionNotFound
	}

	if that.isExpired(entry) {
		that.mu.Lock()
		// the entry may have been rewritten since the read lock was released
		if current, found := that.sessions[id]; found && that.isExpired(current) {
			delete(that.sessions, id)
		}
		that.mu.Unlock()

		return entity.Session{}, apperror.ErrSessionNotFound
	}

	return entry.session, nil
}

func (that *memorySession) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.sessions[id]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	delete(that.sessions, id)

	if that.isExpired(entry) {
		return apperror.ErrSessionNotFound
	}

	return nil
}

// evictExpired drops every expired entry, at most once per ttl so a write
// stays cheap. It must be called with mu held.
func (that *memorySession) evictExpired() {
	if that.ttl <= 0 {
		return
	}

	now := that.now()
	if now.Sub(that.lastSweep) < that.ttl {
		return
	}
	that.lastSweep = now

	for id, entry := range that.sessions {
		if that.isExpired(entry) {
			delete(that.sessions, id)
		}
	}
}

func (that *memorySession) isExpired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !that.now().Before(entry.expiresAt)
}
