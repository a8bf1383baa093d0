// Package profile provides cached access to seeker intake records. Match
// computations hit preferences far more often than seekers edit them, so
// reads are served from a short-lived per-seeker cache.
package profile

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmendel/mentormatch/internal/matching"
	"github.com/jmendel/mentormatch/internal/storage"
)

// PreferenceStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type PreferenceStore interface {
	GetPreferences(seekerID string) (matching.SeekerPreferences, error)
	SavePreferences(p matching.SeekerPreferences) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	prefs    matching.SeekerPreferences
	cachedAt time.Time
}

// Manager serves seeker preferences with a per-seeker TTL cache.
type Manager struct {
	store PreferenceStore
	clock Clock
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store PreferenceStore) *Manager {
	return NewManagerWithClock(store, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store PreferenceStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
	}
}

// Preferences returns a seeker's intake record, from cache when fresh.
// A seeker with no record yields matching.ErrNoPreferences. Callers receive
// a deep copy; mutating it never corrupts the cache.
func (m *Manager) Preferences(seekerID string) (*matching.SeekerPreferences, error) {
	m.mu.RLock()
	if entry, ok := m.cache[seekerID]; ok && m.clock.Now().Before(entry.cachedAt.Add(m.ttl)) {
		p := deepCopyPreferences(entry.prefs)
		m.mu.RUnlock()
		return &p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if entry, ok := m.cache[seekerID]; ok && m.clock.Now().Before(entry.cachedAt.Add(m.ttl)) {
		p := deepCopyPreferences(entry.prefs)
		return &p, nil
	}

	prefs, err := m.store.GetPreferences(seekerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, matching.ErrNoPreferences
		}
		return nil, fmt.Errorf("loading preferences for %s: %w", seekerID, err)
	}

	m.cache[seekerID] = cacheEntry{prefs: prefs, cachedAt: m.clock.Now()}
	p := deepCopyPreferences(prefs)
	return &p, nil
}

// Save persists the record and invalidates the seeker's cache entry.
func (m *Manager) Save(prefs matching.SeekerPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SavePreferences(prefs); err != nil {
		return fmt.Errorf("saving preferences for %s: %w", prefs.SeekerID, err)
	}

	delete(m.cache, prefs.SeekerID)
	return nil
}

// Invalidate drops a seeker's cache entry without touching storage.
func (m *Manager) Invalidate(seekerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, seekerID)
}

func deepCopyPreferences(p matching.SeekerPreferences) matching.SeekerPreferences {
	cp := p

	if p.SkillNeeds != nil {
		cp.SkillNeeds = make([]matching.SkillNeed, len(p.SkillNeeds))
		copy(cp.SkillNeeds, p.SkillNeeds)
	}
	if p.IndustryInterests != nil {
		cp.IndustryInterests = make([]string, len(p.IndustryInterests))
		copy(cp.IndustryInterests, p.IndustryInterests)
	}
	if p.Traits != nil {
		cp.Traits = make(map[string]string, len(p.Traits))
		for k, v := range p.Traits {
			cp.Traits[k] = v
		}
	}
	return cp
}
