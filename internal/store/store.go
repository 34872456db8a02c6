package store

import (
	"context"
	"time"

	"github.com/rocketsafe/rocketsafe/internal/database"
	"github.com/rocketsafe/rocketsafe/internal/models"
)

// Store persists and reads back logged events. The risk engine never touches
// it; only the API layer writes and the analytics rollups read.
type Store interface {
	InsertLocationCheck(ctx context.Context, check models.LocationCheck) error
	InsertSearchLog(ctx context.Context, entry models.SearchLog) error
	QueryLocationChecks(ctx context.Context, since time.Time) ([]models.LocationCheck, error)
	QuerySearchLogs(ctx context.Context, since time.Time) ([]models.SearchLog, error)
	RecentLocationChecks(ctx context.Context, bounds models.Bounds, limit, offset int) ([]models.LocationCheck, int, error)
	Health(ctx context.Context) error
}

// New creates a new store instance
func New(db *database.DB) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
