package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rocketsafe/rocketsafe/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu      sync.RWMutex
	checks  []models.LocationCheck
	queries []models.SearchLog
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// InsertLocationCheck appends a location-check event.
func (s *InMemoryStore) InsertLocationCheck(ctx context.Context, check models.LocationCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, check)
	return nil
}

// InsertSearchLog appends a search-query event.
func (s *InMemoryStore) InsertSearchLog(ctx context.Context, entry models.SearchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, entry)
	return nil
}

// QueryLocationChecks returns checks created at or after since.
func (s *InMemoryStore) QueryLocationChecks(ctx context.Context, since time.Time) ([]models.LocationCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.LocationCheck
	for _, check := range s.checks {
		if !check.CreatedAt.Before(since) {
			result = append(result, check)
		}
	}
	return result, nil
}

// QuerySearchLogs returns search events created at or after since.
func (s *InMemoryStore) QuerySearchLogs(ctx context.Context, since time.Time) ([]models.SearchLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.SearchLog
	for _, entry := range s.queries {
		if !entry.CreatedAt.Before(since) {
			result = append(result, entry)
		}
	}
	return result, nil
}

// RecentLocationChecks returns a page of checks inside bounds, newest first,
// along with the total matching count.
func (s *InMemoryStore) RecentLocationChecks(ctx context.Context, bounds models.Bounds, limit, offset int) ([]models.LocationCheck, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []models.LocationCheck
	for _, check := range s.checks {
		if bounds.Contains(check.Latitude, check.Longitude) {
			matching = append(matching, check)
		}
	}

	sort.Slice(matching, func(i, j int) bool {
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})

	total := len(matching)
	if offset >= len(matching) {
		return []models.LocationCheck{}, total, nil
	}
	matching = matching[offset:]
	if limit > 0 && limit < len(matching) {
		matching = matching[:limit]
	}
	return matching, total, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
