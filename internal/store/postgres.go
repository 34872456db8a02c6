package store

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rocketsafe/rocketsafe/internal/database"
	"github.com/rocketsafe/rocketsafe/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the event tables and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS location_checks (
			id TEXT PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			risk_tier TEXT NOT NULL,
			recent_alerts INT NOT NULL,
			historical_alerts INT NOT NULL,
			user_agent TEXT,
			ip TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_location_checks_created_at ON location_checks (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS search_logs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			query_lower TEXT NOT NULL,
			results_count INT NOT NULL,
			selected_location JSONB,
			language TEXT,
			user_agent TEXT,
			ip TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_logs_query_lower ON search_logs (query_lower)`,
		`CREATE INDEX IF NOT EXISTS idx_search_logs_created_at ON search_logs (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// InsertLocationCheck stores a location-check event.
func (s *PostgresStore) InsertLocationCheck(ctx context.Context, check models.LocationCheck) error {
	err := s.db.Exec(ctx, `
		INSERT INTO location_checks (
			id, latitude, longitude, risk_tier, recent_alerts,
			historical_alerts, user_agent, ip, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, check.ID, check.Latitude, check.Longitude, check.RiskTier, check.RecentAlerts,
		check.HistoricalAlerts, check.UserAgent, check.IP, check.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert location check %s: %w", check.ID, err)
	}
	return nil
}

// InsertSearchLog stores a search-query event.
func (s *PostgresStore) InsertSearchLog(ctx context.Context, entry models.SearchLog) error {
	var selected []byte
	if entry.Selected != nil {
		b, err := json.Marshal(entry.Selected)
		if err != nil {
			return fmt.Errorf("marshal selected location: %w", err)
		}
		selected = b
	}

	err := s.db.Exec(ctx, `
		INSERT INTO search_logs (
			id, query, query_lower, results_count, selected_location,
			language, user_agent, ip, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, entry.ID, entry.Query, entry.QueryLower, entry.ResultsCount, selected,
		entry.Language, entry.UserAgent, entry.IP, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert search log %s: %w", entry.ID, err)
	}
	return nil
}

// QueryLocationChecks returns checks created at or after since.
func (s *PostgresStore) QueryLocationChecks(ctx context.Context, since time.Time) ([]models.LocationCheck, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, latitude, longitude, risk_tier, recent_alerts,
			   historical_alerts, user_agent, ip, created_at
		FROM location_checks
		WHERE created_at >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query location checks: %w", err)
	}
	defer rows.Close()

	var checks []models.LocationCheck
	for rows.Next() {
		var check models.LocationCheck
		if err := rows.Scan(
			&check.ID, &check.Latitude, &check.Longitude, &check.RiskTier,
			&check.RecentAlerts, &check.HistoricalAlerts, &check.UserAgent,
			&check.IP, &check.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan location check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

// QuerySearchLogs returns search events created at or after since.
func (s *PostgresStore) QuerySearchLogs(ctx context.Context, since time.Time) ([]models.SearchLog, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, query, query_lower, results_count, selected_location,
			   language, user_agent, ip, created_at
		FROM search_logs
		WHERE created_at >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query search logs: %w", err)
	}
	defer rows.Close()

	var entries []models.SearchLog
	for rows.Next() {
		var entry models.SearchLog
		var selected []byte
		if err := rows.Scan(
			&entry.ID, &entry.Query, &entry.QueryLower, &entry.ResultsCount,
			&selected, &entry.Language, &entry.UserAgent, &entry.IP, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan search log: %w", err)
		}
		if len(selected) > 0 {
			var sel models.SelectedLocation
			if err := json.Unmarshal(selected, &sel); err == nil {
				entry.Selected = &sel
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RecentLocationChecks returns a page of checks inside bounds, newest first.
func (s *PostgresStore) RecentLocationChecks(ctx context.Context, bounds models.Bounds, limit, offset int) ([]models.LocationCheck, int, error) {
	var total int
	countRows, err := s.db.Query(ctx, `
		SELECT COUNT(*) FROM location_checks
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
	`, bounds.South, bounds.North, bounds.West, bounds.East)
	if err != nil {
		return nil, 0, fmt.Errorf("count recent checks: %w", err)
	}
	if countRows.Next() {
		if err := countRows.Scan(&total); err != nil {
			countRows.Close()
			return nil, 0, fmt.Errorf("scan recent checks count: %w", err)
		}
	}
	countRows.Close()

	rows, err := s.db.Query(ctx, `
		SELECT id, latitude, longitude, risk_tier, recent_alerts,
			   historical_alerts, user_agent, ip, created_at
		FROM location_checks
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`, bounds.South, bounds.North, bounds.West, bounds.East, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query recent checks: %w", err)
	}
	defer rows.Close()

	var checks []models.LocationCheck
	for rows.Next() {
		var check models.LocationCheck
		if err := rows.Scan(
			&check.ID, &check.Latitude, &check.Longitude, &check.RiskTier,
			&check.RecentAlerts, &check.HistoricalAlerts, &check.UserAgent,
			&check.IP, &check.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan recent check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, total, rows.Err()
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
